package live

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// NATSPublisher publishes every snapshot to a NATS subject as a protobuf Struct.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		return nil, fmt.Errorf("NATS subject must not be empty")
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	logrus.Infof("Connected to NATS server at %s, publishing to %s", url, subject)
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// Publish serializes snap and publishes it.
func (p *NATSPublisher) Publish(snap Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			logrus.Warnf("draining NATS connection: %v", err)
		}
	}
}

// EncodeSnapshot marshals snap to the wire format: a google.protobuf.Struct
// keyed by the snapshot's JSON field names.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{
		"clock_us":      snap.Clock,
		"time_s":        snap.TimeSec,
		"load":          snap.Load,
		"in_flight":     snap.InFlight,
		"capacity":      snap.Capacity,
		"dropped":       snap.Dropped,
		"attack_active": snap.AttackActive,
		"done":          snap.Done,
	})
	if err != nil {
		return nil, fmt.Errorf("building snapshot struct: %w", err)
	}
	data, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	f := st.GetFields()
	return Snapshot{
		Clock:        int64(f["clock_us"].GetNumberValue()),
		TimeSec:      f["time_s"].GetNumberValue(),
		Load:         f["load"].GetNumberValue(),
		InFlight:     int(f["in_flight"].GetNumberValue()),
		Capacity:     int(f["capacity"].GetNumberValue()),
		Dropped:      int64(f["dropped"].GetNumberValue()),
		AttackActive: f["attack_active"].GetBoolValue(),
		Done:         f["done"].GetBoolValue(),
	}, nil
}
