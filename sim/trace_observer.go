package sim

import "github.com/inference-sim/floodsim/sim/trace"

// TraceObserver records every admission outcome into a SimulationTrace.
type TraceObserver struct {
	Trace  *trace.SimulationTrace
	server *Server
}

// AttachTrace registers a recorder for the server's admission outcomes and returns it.
func AttachTrace(server *Server, config trace.TraceConfig) *TraceObserver {
	o := &TraceObserver{Trace: trace.NewSimulationTrace(config), server: server}
	server.Observe(o)
	return o
}

func (o *TraceObserver) OnOutcome(now int64, req Request, outcome Outcome) {
	o.Trace.RecordAdmission(trace.AdmissionRecord{
		RequestID: req.ID,
		Class:     string(req.Class),
		SourceID:  req.SourceID,
		Clock:     now,
		Admitted:  outcome == OutcomeAdmitted,
		InFlight:  o.server.InFlight(),
	})
}
