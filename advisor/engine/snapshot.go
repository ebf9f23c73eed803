package engine

import (
	"fmt"

	"github.com/biwstack/biw-advisor/advisor"
	"github.com/biwstack/biw-advisor/advisor/regression"
)

// ModelSnapshot is a point-in-time copy of one class's regression model.
type ModelSnapshot struct {
	Class       advisor.QueryClass     `json:"class" yaml:"class"`
	State       regression.State       `json:"state" yaml:"state"`
	SmallMedium float64                `json:"small_medium" yaml:"small_medium"`
	MediumLarge float64                `json:"medium_large" yaml:"medium_large"`
	Buckets     [3][]regression.Sample `json:"buckets" yaml:"buckets"`
	Fits        [3]*regression.Fit     `json:"fits" yaml:"fits"` // nil for buckets without a fit
	Warmup      int                    `json:"warmup_samples" yaml:"warmup_samples"`
}

// Model returns a snapshot of the model for class.
func (e *Engine) Model(class advisor.QueryClass) (ModelSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.models[class]
	if !ok {
		return ModelSnapshot{}, fmt.Errorf("unknown query class %q: %w", class, advisor.ErrNoQueryClass)
	}
	s := ModelSnapshot{
		Class:   class,
		State:   m.State(),
		Buckets: m.Buckets(),
		Warmup:  m.WarmupSize(),
	}
	s.SmallMedium, s.MediumLarge = m.Boundaries()
	fits, fitted := m.Fits()
	for b := range fits {
		if fitted[b] {
			f := fits[b]
			s.Fits[b] = &f
		}
	}
	return s, nil
}
