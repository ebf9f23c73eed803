// Package engine is the decision engine: it classifies a query, sizes its
// data table, asks the class's CPU regression model and the accelerator cost
// model for predictions, and picks the faster path. Observed CPU times are
// fed back to the regression models.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/biwstack/biw-advisor/advisor"
	"github.com/biwstack/biw-advisor/advisor/accel"
	"github.com/biwstack/biw-advisor/advisor/classify"
	"github.com/biwstack/biw-advisor/advisor/metrics"
	"github.com/biwstack/biw-advisor/advisor/regression"
	"github.com/biwstack/biw-advisor/advisor/sizing"
	"github.com/biwstack/biw-advisor/advisor/trace"
)

// Engine owns one regression model per query class. It is safe for
// concurrent use: model reads and updates are serialized by a mutex.
type Engine struct {
	cfg        advisor.Config
	classifier *classify.Classifier
	sizer      *sizing.Sizer
	hw         *accel.Model
	metrics    *metrics.Metrics
	now        func() time.Time

	mu     sync.Mutex
	models map[advisor.QueryClass]*regression.Model
	trace  *trace.Trace
}

type options struct {
	trace   *trace.Trace
	metrics *metrics.Metrics
	profile *accel.Profile
	seed    *regression.Seed
	noSeed  bool
	now     func() time.Time
}

// Option customizes New.
type Option func(*options)

// WithTrace records decisions and outcomes into t instead of a trace built
// from the configuration.
func WithTrace(t *trace.Trace) Option { return func(o *options) { o.trace = t } }

// WithMetrics publishes activity to m.
func WithMetrics(m *metrics.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithProfile uses p instead of looking up the configured device.
func WithProfile(p accel.Profile) Option { return func(o *options) { o.profile = &p } }

// WithSeed seeds the models from s instead of the configured seed. A nil
// seed starts every model empty.
func WithSeed(s *regression.Seed) Option {
	return func(o *options) { o.seed, o.noSeed = s, s == nil }
}

// WithClock overrides the time source used for trace records.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New builds an engine from cfg. Sizing reads tables through storage.
func New(cfg advisor.Config, storage advisor.Storage, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	profile := o.profile
	if profile == nil {
		p, err := accel.GetProfile(cfg.ProfilesPath, cfg.Device)
		if err != nil {
			return nil, err
		}
		profile = &p
	} else if err := accel.ValidateProfile(*profile); err != nil {
		return nil, err
	}

	seed := o.seed
	if seed == nil && !o.noSeed {
		var err error
		if seed, err = loadSeed(cfg.Seed); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		cfg:        cfg,
		classifier: classify.New(cfg.Classifier),
		sizer:      sizing.NewSizer(storage, cfg.PageSize),
		hw:         accel.NewModel(*profile),
		metrics:    o.metrics,
		now:        o.now,
		models:     make(map[advisor.QueryClass]*regression.Model, len(advisor.QueryClasses)),
		trace:      o.trace,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.trace == nil {
		e.trace = trace.New(trace.Level(cfg.Trace))
	}

	for _, class := range advisor.QueryClasses {
		m, err := newModel(cfg.Adaptive, seed, class)
		if err != nil {
			return nil, fmt.Errorf("seeding %s: %w", class, err)
		}
		e.models[class] = m
		if m.State() != regression.Empty {
			sm, ml := m.Boundaries()
			e.metrics.SetBoundaries(class, sm, ml)
		}
	}
	logrus.Infof("[engine] device %q with %d cores, seed %q, %d query classes",
		cfg.Device, e.hw.Cores(), cfg.Seed, len(e.models))
	return e, nil
}

func loadSeed(source string) (*regression.Seed, error) {
	switch source {
	case advisor.SeedNone:
		return nil, nil
	case advisor.SeedBuiltin:
		return regression.BuiltinSeed()
	}
	return regression.LoadSeed(source)
}

func newModel(params advisor.AdaptiveConfig, seed *regression.Seed, class advisor.QueryClass) (*regression.Model, error) {
	if seed == nil {
		return regression.NewModel(params), nil
	}
	buckets, ok := seed.Buckets(class)
	if !ok {
		return regression.NewModel(params), nil
	}
	return regression.NewSeededModel(params, buckets)
}

// Decide returns the advisory decision for query. It always returns a
// usable Decision: when no prediction can be made the choice is the CPU,
// Predicted is false, and the error says why.
func (e *Engine) Decide(ctx context.Context, query string) (advisor.Decision, error) {
	d := advisor.Decision{ID: uuid.NewString(), Choice: advisor.ChoiceCPU}
	d.Descriptor = e.classifier.Classify(query)
	if !d.Descriptor.Supported() {
		return e.fallback(d, advisor.FallbackUnsupported, advisor.ErrUnsupported)
	}
	class, ok := d.Descriptor.Class()
	if !ok {
		return e.fallback(d, advisor.FallbackNoQueryClass,
			fmt.Errorf("%s: %w", d.Descriptor.Kind, advisor.ErrNoQueryClass))
	}
	d.Class = class
	d.Features = d.Descriptor.Features()

	w, err := e.sizer.Size(ctx, d.Descriptor.DataTable)
	if err != nil {
		reason := advisor.FallbackSizing
		if errors.Is(err, advisor.ErrTableNotFound) {
			reason = advisor.FallbackTableNotFound
		}
		return e.fallback(d, reason, err)
	}
	d.Rows, d.Pages = w.Rows, w.Pages
	d.SizeK = w.Rows / 1000

	e.mu.Lock()
	cpu, err := e.models[class].Estimate(d.SizeK)
	e.mu.Unlock()
	if err != nil {
		return e.fallback(d, advisor.FallbackInsufficientData, fmt.Errorf("%s: %w", class, err))
	}

	d.PredictedCPUms = cpu
	d.PredictedHWms = e.hw.HWTime(class, d.Features, w.Pages)
	d.Choice = advisor.Choose(d.PredictedCPUms, d.PredictedHWms)
	d.Predicted = true
	logrus.Infof("[engine] %s on %q (%.0f rows): cpu=%.3fms hw=%.3fms -> %s",
		class, d.Descriptor.DataTable, d.Rows, d.PredictedCPUms, d.PredictedHWms, d.Choice)
	e.record(d)
	return d, nil
}

func (e *Engine) fallback(d advisor.Decision, reason advisor.FallbackReason, err error) (advisor.Decision, error) {
	d.Choice = advisor.ChoiceCPU
	d.Predicted = false
	d.Reason = reason
	if reason == advisor.FallbackUnsupported {
		logrus.Debugf("[engine] %s: defaulting to cpu", reason)
	} else {
		logrus.Warnf("[engine] %s: defaulting to cpu: %v", reason, err)
	}
	e.record(d)
	return d, err
}

func (e *Engine) record(d advisor.Decision) {
	e.metrics.ObserveDecision(d)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trace.RecordDecision(trace.DecisionRecord{
		ID:             d.ID,
		Time:           e.now(),
		Kind:           d.Descriptor.Kind,
		Class:          d.Class,
		SizeK:          d.SizeK,
		PredictedCPUms: d.PredictedCPUms,
		PredictedHWms:  d.PredictedHWms,
		Choice:         d.Choice,
		Predicted:      d.Predicted,
		Reason:         d.Reason,
	})
}

// RecordOutcome feeds an observed CPU execution of rows input rows back to
// the class's model.
func (e *Engine) RecordOutcome(class advisor.QueryClass, rows, elapsedMs float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.models[class]
	if !ok {
		return fmt.Errorf("unknown query class %q: %w", class, advisor.ErrNoQueryClass)
	}
	sizeK := rows / 1000
	estimated, estErr := m.Estimate(sizeK)
	if err := m.AddObservation(sizeK, elapsedMs); err != nil {
		return fmt.Errorf("%s: %w", class, err)
	}

	e.trace.RecordOutcome(trace.OutcomeRecord{
		Time:        e.now(),
		Class:       class,
		SizeK:       sizeK,
		ElapsedMs:   elapsedMs,
		EstimatedMs: estimated,
		HasEstimate: estErr == nil,
	})
	e.metrics.ObserveOutcome(class, estimated, elapsedMs, estErr == nil)
	if m.State() != regression.Empty {
		sm, ml := m.Boundaries()
		e.metrics.SetBoundaries(class, sm, ml)
	}
	return nil
}

// Inspect reports the storage figures the engine would size table with.
func (e *Engine) Inspect(ctx context.Context, table string) (sizing.Report, error) {
	return e.sizer.Inspect(ctx, table)
}

// HWBreakdown returns the accelerator cost model's per-stage latencies.
func (e *Engine) HWBreakdown(class advisor.QueryClass, features advisor.FeatureClass, pages float64) accel.Breakdown {
	return e.hw.Breakdown(class, features, pages)
}

// Summary aggregates the decisions and outcomes traced so far.
func (e *Engine) Summary() *trace.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return trace.Summarize(e.trace)
}
