package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_FillToCapacityThenDrop(t *testing.T) {
	// GIVEN capacity=10, processingTime=1s and no background traffic
	s := newTestSimulator(t, quietConfig())

	// WHEN 10 requests arrive at the same instant
	outcomes := admitN(s, 10, ClassNormal)

	// THEN all are admitted and the server is saturated
	for i, o := range outcomes {
		assert.Equal(t, OutcomeAdmitted, o, "request %d", i)
	}
	assert.Equal(t, 10, s.Server.InFlight())
	assert.Equal(t, 1.0, s.Server.Load())
	assert.Equal(t, int64(0), s.Server.DroppedCount())

	// WHEN an 11th request arrives at the same instant
	outcome := s.Server.Admit(Request{ID: "eleventh", Class: ClassAttack})

	// THEN it is dropped without consuming capacity
	assert.Equal(t, OutcomeDropped, outcome)
	assert.Equal(t, int64(1), s.Server.DroppedCount())
	assert.Equal(t, 10, s.Server.InFlight())
	assert.Equal(t, 1.0, s.Server.Load())
}

func TestServer_CompletionReleasesCapacityAfterProcessingTime(t *testing.T) {
	// GIVEN 10 requests admitted at t=0
	s := newTestSimulator(t, quietConfig())
	admitN(s, 10, ClassNormal)
	processing := s.Server.ProcessingTime()

	// WHEN the clock stops one tick short of the processing time
	require.NoError(t, s.RunUntil(processing-1))

	// THEN nothing has completed yet
	assert.Equal(t, 10, s.Server.InFlight())

	// WHEN the clock reaches the processing time
	require.NoError(t, s.RunUntil(processing))

	// THEN all requests completed and the server is idle
	assert.Equal(t, 0, s.Server.InFlight())
	assert.Equal(t, 0.0, s.Server.Load())
	assert.Equal(t, int64(10), s.Server.CompletedCount())
}

func TestServer_DropsNeverScheduleCompletions(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	admitN(s, 10, ClassNormal)
	pending := s.Pending()

	admitN(s, 5, ClassAttack)

	assert.Equal(t, pending, s.Pending(), "dropped requests must not hold capacity")
	assert.Equal(t, int64(5), s.Server.DroppedCount())
}

func TestServer_ObserversNotifiedSynchronously(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	var seen []Outcome
	s.Server.Observe(OutcomeFunc(func(now int64, req Request, outcome Outcome) {
		seen = append(seen, outcome)
	}))

	for i := 0; i < 11; i++ {
		got := s.Server.Admit(Request{ID: "r", Class: ClassNormal})
		// the notification has already been delivered when Admit returns
		require.Len(t, seen, i+1)
		assert.Equal(t, got, seen[i])
	}
	assert.Equal(t, OutcomeDropped, seen[10])
}

func TestServer_CountsByClass(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	admitN(s, 8, ClassNormal)
	admitN(s, 5, ClassAttack)

	counts := s.Server.CountsByClass()
	assert.Equal(t, ClassCounts{Admitted: 8}, counts[ClassNormal])
	assert.Equal(t, ClassCounts{Admitted: 2, Dropped: 3}, counts[ClassAttack])
}

// TestServer_InvariantsUnderFlood checks, at every admission decision of a
// full attack run, that capacity is never exceeded, load tracks inFlight and
// each drop adds exactly one to the counter while the server is full.
func TestServer_InvariantsUnderFlood(t *testing.T) {
	s := newTestSimulator(t, DefaultConfig())
	capacity := s.Server.Capacity()
	lastDropped := int64(0)
	decisions := 0

	s.Server.Observe(OutcomeFunc(func(now int64, req Request, outcome Outcome) {
		decisions++
		inFlight := s.Server.InFlight()
		if inFlight > capacity || inFlight < 0 {
			t.Fatalf("inFlight %d outside [0, %d]", inFlight, capacity)
		}
		if load := s.Server.Load(); load != float64(inFlight)/float64(capacity) || load < 0 || load > 1 {
			t.Fatalf("load %f does not match inFlight %d/%d", load, inFlight, capacity)
		}
		dropped := s.Server.DroppedCount()
		switch outcome {
		case OutcomeDropped:
			if inFlight != capacity {
				t.Fatalf("dropped %s with only %d/%d in flight", req.ID, inFlight, capacity)
			}
			if dropped != lastDropped+1 {
				t.Fatalf("drop counter went %d -> %d", lastDropped, dropped)
			}
		case OutcomeAdmitted:
			if dropped != lastDropped {
				t.Fatalf("admission changed drop counter %d -> %d", lastDropped, dropped)
			}
		}
		lastDropped = dropped
	}))

	require.NoError(t, s.Run())
	assert.Greater(t, decisions, 1000)
	assert.Greater(t, s.Server.DroppedCount(), int64(0))
}

func TestNewServer_RejectsInvalidArguments(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	tests := []struct {
		name       string
		capacity   int
		processing int64
		field      string
	}{
		{"zero capacity", 0, 1, "server.capacity"},
		{"negative capacity", -3, 1, "server.capacity"},
		{"zero processing", 1, 0, "server.processing_time"},
		{"negative processing", 1, -5, "server.processing_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewServer(tt.capacity, tt.processing, s)
			assert.Nil(t, srv)
			var cfgErr *InvalidConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestServer_ReadsAreIdempotent(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	admitN(s, 12, ClassAttack)

	assert.Equal(t, s.Server.Load(), s.Server.Load())
	assert.Equal(t, s.Server.DroppedCount(), s.Server.DroppedCount())
	assert.Equal(t, s.Server.CountsByClass(), s.Server.CountsByClass())
}
