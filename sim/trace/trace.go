package trace

// TraceLevel controls the verbosity of admission tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every admission decision.
	TraceLevelDecisions TraceLevel = "decisions"
	// TraceLevelDrops captures only dropped requests.
	TraceLevelDrops TraceLevel = "drops"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	TraceLevelDrops:     true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level      TraceLevel
	MaxRecords int // records kept before further ones are only counted; 0 = unlimited
}

// SimulationTrace collects admission records during a simulation.
type SimulationTrace struct {
	Config     TraceConfig
	Admissions []AdmissionRecord
	Overflow   int // records discarded because MaxRecords was reached
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Admissions: make([]AdmissionRecord, 0),
	}
}

// Enabled reports whether the trace records anything at all.
func (st *SimulationTrace) Enabled() bool {
	return st.Config.Level != TraceLevelNone && st.Config.Level != ""
}

// RecordAdmission appends an admission record, subject to the level and the record cap.
func (st *SimulationTrace) RecordAdmission(record AdmissionRecord) {
	if !st.Enabled() {
		return
	}
	if st.Config.Level == TraceLevelDrops && record.Admitted {
		return
	}
	if st.Config.MaxRecords > 0 && len(st.Admissions) >= st.Config.MaxRecords {
		st.Overflow++
		return
	}
	st.Admissions = append(st.Admissions, record)
}
