package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// quietConfig returns the default scenario with no traffic sources at all,
// so tests can drive the server by hand.
func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Normal.Clients = 0
	cfg.Attack.Sources = 0
	return cfg
}

func newTestSimulator(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg)
	require.NoError(t, err)
	return s
}

func admitN(s *Simulator, n int, class TrafficClass) []Outcome {
	outcomes := make([]Outcome, n)
	for i := 0; i < n; i++ {
		outcomes[i] = s.Server.Admit(Request{
			ID:          fmt.Sprintf("manual-%d", i),
			Class:       class,
			SourceID:    "manual",
			ArrivalTime: s.Clock,
		})
	}
	return outcomes
}

// recordingEvent appends its label to a shared log when executed.
type recordingEvent struct {
	time  int64
	label string
	log   *[]string
}

func (e *recordingEvent) Timestamp() int64 { return e.time }

func (e *recordingEvent) Execute(_ *Simulator) {
	*e.log = append(*e.log, e.label)
}
