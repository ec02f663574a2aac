package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrBrokerClosed = errors.New("broker closed")

// MemoryBroker fans messages out to in-process subscribers. It backs the
// memory storage driver where no Redis is available.
type MemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan []byte]struct{}
	closed      bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subscribers: make(map[string]map[chan []byte]struct{}),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}

	for sub := range b.subscribers[channel] {
		select {
		case sub <- payload:
		default:
			log.Warn().Str("channel", channel).Msg("subscriber channel full, skipping message")
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := make(chan []byte, 100)
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan []byte]struct{})
	}
	b.subscribers[channel][sub] = struct{}{}

	go func() {
		<-ctx.Done()
		b.remove(channel, sub)
	}()

	return sub, nil
}

func (b *MemoryBroker) remove(channel string, sub chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub)
	if len(subs) == 0 {
		delete(b.subscribers, channel)
	}
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for channel, subs := range b.subscribers {
		for sub := range subs {
			close(sub)
		}
		delete(b.subscribers, channel)
	}
	return nil
}
