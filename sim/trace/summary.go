package trace

// ClassTally counts decisions for one traffic class.
type ClassTally struct {
	Admitted int
	Rejected int
}

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions      int
	AdmittedCount       int
	RejectedCount       int
	FirstRejectClock    int64 // -1 when nothing was rejected
	LongestRejectStreak int   // most consecutive rejections in decision order
	ByClass             map[string]ClassTally
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		FirstRejectClock: -1,
		ByClass:          make(map[string]ClassTally),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Admissions)
	streak := 0
	for _, a := range st.Admissions {
		tally := summary.ByClass[a.Class]
		if a.Admitted {
			summary.AdmittedCount++
			tally.Admitted++
			streak = 0
		} else {
			summary.RejectedCount++
			tally.Rejected++
			if summary.FirstRejectClock < 0 {
				summary.FirstRejectClock = a.Clock
			}
			streak++
			summary.LongestRejectStreak = max(summary.LongestRejectStreak, streak)
		}
		summary.ByClass[a.Class] = tally
	}

	return summary
}
