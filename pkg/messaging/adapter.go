package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carehospital/admin-api/pkg/metrics"
)

// ChangeNotifier publishes collection change events on a Broker.
type ChangeNotifier struct {
	broker  Broker
	channel string
	metrics *metrics.Metrics
}

// NewChangeNotifier returns a notifier on ChangesChannel. m may be nil.
func NewChangeNotifier(broker Broker, m *metrics.Metrics) *ChangeNotifier {
	return &ChangeNotifier{broker: broker, channel: ChangesChannel, metrics: m}
}

func (n *ChangeNotifier) Notify(ctx context.Context, key string, version int64) error {
	evt := ChangeEvent{Key: key, Version: version, At: time.Now().UTC()}
	if err := n.broker.Publish(ctx, n.channel, evt); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	if n.metrics != nil {
		n.metrics.ChangeEvents.WithLabelValues(key).Inc()
	}
	return nil
}

// SubscribeChanges decodes the raw change channel into ChangeEvents.
// Undecodable payloads are logged and skipped.
func SubscribeChanges(ctx context.Context, broker Broker) (<-chan ChangeEvent, error) {
	raw, err := broker.Subscribe(ctx, ChangesChannel)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	out := make(chan ChangeEvent, 16)
	go func() {
		defer close(out)
		for payload := range raw {
			var evt ChangeEvent
			if err := json.Unmarshal(payload, &evt); err != nil {
				log.Warn().Err(err).Msg("dropping malformed change event")
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
