package advisor

import "fmt"

// Kind identifies the ML-scoring operation of a recognized query.
type Kind int

const (
	Unsupported Kind = iota
	LinearRegression
	LogisticRegression
	SVM
	MLP
	DecisionTree
	Forest
)

var kindNames = map[Kind]string{
	Unsupported:        "unsupported",
	LinearRegression:   "linregr",
	LogisticRegression: "logregr",
	SVM:                "svm",
	MLP:                "mlp",
	DecisionTree:       "tree",
	Forest:             "forest",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler so kinds render by name in JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", text)
}

// Comparator is the operator of a WHERE filter.
type Comparator int

const (
	Larger Comparator = iota + 1
	LargerSame
	Same
	Smaller
	SmallerSame
)

var comparatorSymbols = map[Comparator]string{
	Larger:      ">",
	LargerSame:  ">=",
	Same:        "=",
	Smaller:     "<",
	SmallerSame: "<=",
}

func (c Comparator) String() string {
	if s, ok := comparatorSymbols[c]; ok {
		return s
	}
	return fmt.Sprintf("cmp(%d)", int(c))
}

func (c Comparator) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Comparator) UnmarshalText(text []byte) error {
	cmp, ok := ParseComparator(string(text))
	if !ok {
		return fmt.Errorf("unknown comparator %q", text)
	}
	*c = cmp
	return nil
}

// ParseComparator maps a filter operator token to a Comparator.
// "==" is accepted as an alias of "=".
func ParseComparator(s string) (Comparator, bool) {
	switch s {
	case ">":
		return Larger, true
	case ">=":
		return LargerSame, true
	case "=", "==":
		return Same, true
	case "<":
		return Smaller, true
	case "<=":
		return SmallerSame, true
	}
	return 0, false
}

// AggregateOp is the aggregate function applied to a scoring result.
type AggregateOp int

const (
	Count AggregateOp = iota + 1
	Max
	Min
	Avg
	Sum
)

var aggregateNames = map[AggregateOp]string{
	Count: "COUNT",
	Max:   "MAX",
	Min:   "MIN",
	Avg:   "AVG",
	Sum:   "SUM",
}

func (op AggregateOp) String() string {
	if s, ok := aggregateNames[op]; ok {
		return s
	}
	return fmt.Sprintf("aggr(%d)", int(op))
}

func (op AggregateOp) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

func (op *AggregateOp) UnmarshalText(text []byte) error {
	parsed, ok := ParseAggregateOp(string(text))
	if !ok {
		return fmt.Errorf("unknown aggregate %q", text)
	}
	*op = parsed
	return nil
}

// ParseAggregateOp maps an aggregate function name to an AggregateOp.
func ParseAggregateOp(s string) (AggregateOp, bool) {
	for op, name := range aggregateNames {
		if name == s {
			return op, true
		}
	}
	return 0, false
}

// Filter is a single `table.column op literal` predicate.
type Filter struct {
	Table  string     `json:"table" yaml:"table"`
	Column string     `json:"column" yaml:"column"`
	Op     Comparator `json:"op" yaml:"op"`
	Value  float64    `json:"value" yaml:"value"`
}

// Aggregate is an aggregate function over a `table.column` operand.
type Aggregate struct {
	Op     AggregateOp `json:"op" yaml:"op"`
	Table  string      `json:"table" yaml:"table"`
	Column string      `json:"column" yaml:"column"`
}

// BiasColumn is the literal column name marking the regression bias term.
const BiasColumn = "1"

// Descriptor describes the shape of one classified query.
// It is built fresh per query and is not modified after classification.
type Descriptor struct {
	Kind         Kind       `json:"kind" yaml:"kind"`
	DataTable    string     `json:"data_table,omitempty" yaml:"data_table,omitempty"`
	ModelTable   string     `json:"model_table,omitempty" yaml:"model_table,omitempty"`
	ModelColumns []string   `json:"model_columns,omitempty" yaml:"model_columns,omitempty"`
	DataColumns  []string   `json:"data_columns,omitempty" yaml:"data_columns,omitempty"`
	IDColumn     string     `json:"id_column,omitempty" yaml:"id_column,omitempty"`
	OutputTable  string     `json:"output_table,omitempty" yaml:"output_table,omitempty"`
	Filter       *Filter    `json:"filter,omitempty" yaml:"filter,omitempty"`
	Aggregate    *Aggregate `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`

	// TrainTable is set when the statement trains a decision tree
	// (madlib.tree_train); it names the table receiving the trained model.
	TrainTable string `json:"train_table,omitempty" yaml:"train_table,omitempty"`
}

// Supported reports whether the descriptor names a recognized ML operation.
func (d Descriptor) Supported() bool {
	return d.Kind != Unsupported
}
