package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := SubscribeChanges(ctx, broker)
	require.NoError(t, err)

	notifier := NewChangeNotifier(broker, nil)
	require.NoError(t, notifier.Notify(ctx, "appointments", 7))

	select {
	case evt := <-events:
		assert.Equal(t, "appointments", evt.Key)
		assert.Equal(t, int64(7), evt.Version)
		assert.False(t, evt.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestMemoryBroker_UnsubscribeOnCancel(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := broker.Subscribe(ctx, "c")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestMemoryBroker_Closed(t *testing.T) {
	broker := NewMemoryBroker()
	require.NoError(t, broker.Close())

	err := broker.Publish(context.Background(), "c", map[string]string{"a": "b"})
	assert.ErrorIs(t, err, ErrBrokerClosed)

	_, err = broker.Subscribe(context.Background(), "c")
	assert.ErrorIs(t, err, ErrBrokerClosed)
}
