package messaging

import (
	"context"
	"time"
)

// ChangesChannel carries one ChangeEvent per successful collection write.
const ChangesChannel = "collections:changed"

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// ChangeEvent announces a new version of a stored collection.
type ChangeEvent struct {
	Key     string    `json:"key"`
	Version int64     `json:"version"`
	At      time.Time `json:"at"`
}
