// Package trace provides admission-trace recording for post-run analysis.
// It has no dependencies on sim/ and stores pure data types.
package trace

// AdmissionRecord captures a single admission decision.
type AdmissionRecord struct {
	RequestID string `json:"request_id" yaml:"request_id"`
	Class     string `json:"class" yaml:"class"`
	SourceID  string `json:"source_id" yaml:"source_id"`
	Clock     int64  `json:"clock" yaml:"clock"`
	Admitted  bool   `json:"admitted" yaml:"admitted"`
	InFlight  int    `json:"in_flight" yaml:"in_flight"` // in-flight count right after the decision
}
