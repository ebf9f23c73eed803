package trace

// Level controls the verbosity of decision tracing.
type Level string

const (
	// LevelNone disables tracing.
	LevelNone Level = "none"
	// LevelDecisions captures every decision and outcome.
	LevelDecisions Level = "decisions"
)

var validLevels = map[Level]bool{
	LevelNone:      true,
	LevelDecisions: true,
	"":             true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Trace collects records in arrival order. It is not safe for concurrent
// use; the engine records under its own lock.
type Trace struct {
	Level     Level
	Decisions []DecisionRecord
	Outcomes  []OutcomeRecord
}

// New creates a Trace ready for recording.
func New(level Level) *Trace {
	return &Trace{
		Level:     level,
		Decisions: make([]DecisionRecord, 0),
		Outcomes:  make([]OutcomeRecord, 0),
	}
}

// Enabled reports whether records are kept.
func (t *Trace) Enabled() bool {
	return t != nil && t.Level == LevelDecisions
}

// RecordDecision appends a decision record.
func (t *Trace) RecordDecision(r DecisionRecord) {
	if t.Enabled() {
		t.Decisions = append(t.Decisions, r)
	}
}

// RecordOutcome appends an outcome record.
func (t *Trace) RecordOutcome(r OutcomeRecord) {
	if t.Enabled() {
		t.Outcomes = append(t.Outcomes, r)
	}
}
