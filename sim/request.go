// Defines the Request and the admission outcome exchanged between traffic
// sources, the server and outcome observers.

package sim

// TrafficClass tags the arrival process that produced a request.
type TrafficClass string

const (
	ClassNormal TrafficClass = "normal"
	ClassAttack TrafficClass = "attack"
)

// Request is a single arrival offered to the server.
type Request struct {
	ID          string       // Unique identifier, "<source>-<n>"
	Class       TrafficClass // normal or attack
	SourceID    string       // TrafficSource that generated the request
	ArrivalTime int64        // Virtual time of arrival (in ticks)
}

// Outcome is the admission decision for a request.
type Outcome string

const (
	OutcomeAdmitted Outcome = "admitted"
	OutcomeDropped  Outcome = "dropped"
)

// OutcomeObserver is notified synchronously every time the server decides on a request.
// Observers must not mutate the server.
type OutcomeObserver interface {
	OnOutcome(now int64, req Request, outcome Outcome)
}

// OutcomeFunc adapts a plain function to OutcomeObserver.
type OutcomeFunc func(now int64, req Request, outcome Outcome)

func (f OutcomeFunc) OnOutcome(now int64, req Request, outcome Outcome) {
	f(now, req, outcome)
}
