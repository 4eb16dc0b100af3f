package sink

import (
	"context"
	"time"

	"github.com/sgostarter/libreducer/reducer"
)

// Record is a retained point of one series session, as it is persisted.
type Record struct {
	Key        string    `json:"key" yaml:"key"`
	SessionID  uint64    `json:"sessionID" yaml:"sessionID"`
	Value      float64   `json:"value" yaml:"value"`
	Timestamp  float64   `json:"timestamp" yaml:"timestamp"`
	At         time.Time `json:"at,omitempty" yaml:"at,omitempty"`
	ReceivedAt time.Time `json:"receivedAt" yaml:"receivedAt"`
}

func NewRecord(key string, sessionID uint64, p reducer.Point, receivedAt time.Time) Record {
	return Record{
		Key:        key,
		SessionID:  sessionID,
		Value:      p.Value,
		Timestamp:  p.Timestamp,
		At:         p.At,
		ReceivedAt: receivedAt,
	}
}

func (r Record) Point() reducer.Point {
	return reducer.Point{
		Value:     r.Value,
		Timestamp: r.Timestamp,
		At:        r.At,
	}
}

// Storage keeps the retained records of every series key, in emission order.
type Storage interface {
	// Save appends records to the key.
	Save(ctx context.Context, key string, records []Record) error
	Load(ctx context.Context, key string) ([]Record, error)
	Remove(ctx context.Context, key string) error
}
