package advisor

import "fmt"

// QueryClass is a calibrated workload class. Each class owns one CPU
// regression model and one row of the accelerator cycle table.
type QueryClass string

const (
	ClassLinregr           QueryClass = "linregr"
	ClassLinregrFilter     QueryClass = "linregr-filter"
	ClassLinregrAggr       QueryClass = "linregr-aggr"
	ClassLinregrFilterAggr QueryClass = "linregr-filter-aggr"
	ClassLogregr           QueryClass = "logregr"
	ClassLogregrFilter     QueryClass = "logregr-filter"
	ClassLogregrAggr       QueryClass = "logregr-aggr"
	ClassLogregrFilterAggr QueryClass = "logregr-filter-aggr"
	ClassSVM               QueryClass = "svm"
	ClassMLP               QueryClass = "mlp"
	ClassTree              QueryClass = "tree"
)

// QueryClasses lists every calibrated class in canonical order.
var QueryClasses = []QueryClass{
	ClassLinregr, ClassLinregrFilter, ClassLinregrAggr, ClassLinregrFilterAggr,
	ClassLogregr, ClassLogregrFilter, ClassLogregrAggr, ClassLogregrFilterAggr,
	ClassSVM, ClassMLP, ClassTree,
}

// IsValidQueryClass returns true if name is a calibrated query class.
func IsValidQueryClass(name string) bool {
	for _, c := range QueryClasses {
		if string(c) == name {
			return true
		}
	}
	return false
}

// HasScalarOutput reports whether the class returns a single aggregate value
// instead of one result per input row.
func (c QueryClass) HasScalarOutput() bool {
	switch c {
	case ClassLinregrAggr, ClassLinregrFilterAggr, ClassLogregrAggr, ClassLogregrFilterAggr:
		return true
	}
	return false
}

// Class derives the calibrated query class of a descriptor.
// Forest and unsupported descriptors have no class.
func (d Descriptor) Class() (QueryClass, bool) {
	filtered := d.Filter != nil
	aggregated := d.Aggregate != nil
	switch d.Kind {
	case LinearRegression:
		return regressionClass(ClassLinregr, ClassLinregrFilter, ClassLinregrAggr, ClassLinregrFilterAggr, filtered, aggregated), true
	case LogisticRegression:
		return regressionClass(ClassLogregr, ClassLogregrFilter, ClassLogregrAggr, ClassLogregrFilterAggr, filtered, aggregated), true
	case SVM:
		return ClassSVM, true
	case MLP:
		return ClassMLP, true
	case DecisionTree:
		return ClassTree, true
	}
	return "", false
}

func regressionClass(plain, filter, aggr, both QueryClass, filtered, aggregated bool) QueryClass {
	switch {
	case filtered && aggregated:
		return both
	case filtered:
		return filter
	case aggregated:
		return aggr
	}
	return plain
}

// FeatureClass buckets a dataset by its feature count. The accelerator's
// per-page cycle costs were measured on one reference dataset per class.
type FeatureClass string

const (
	FeaturesWide   FeatureClass = "wide"   // > 17 features (HIGGS)
	FeaturesLarge  FeatureClass = "large"  // 9-17 features (Forest cover type)
	FeaturesMedium FeatureClass = "medium" // 5-8 features (Wilt)
	FeaturesNarrow FeatureClass = "narrow" // <= 4 features (Haberman)
)

// FeatureClasses lists every feature class, widest first.
var FeatureClasses = []FeatureClass{FeaturesWide, FeaturesLarge, FeaturesMedium, FeaturesNarrow}

// ClassifyFeatures maps a feature (data column) count to its FeatureClass.
func ClassifyFeatures(n int) FeatureClass {
	switch {
	case n > 17:
		return FeaturesWide
	case n > 8:
		return FeaturesLarge
	case n > 4:
		return FeaturesMedium
	}
	return FeaturesNarrow
}

// Features returns the descriptor's dataset feature class.
func (d Descriptor) Features() FeatureClass {
	return ClassifyFeatures(len(d.DataColumns))
}

// ParseQueryClass converts a class name into a QueryClass.
func ParseQueryClass(name string) (QueryClass, error) {
	if !IsValidQueryClass(name) {
		return "", fmt.Errorf("unknown query class %q", name)
	}
	return QueryClass(name), nil
}
