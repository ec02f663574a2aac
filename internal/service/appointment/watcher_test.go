package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/repository/memory"
	"github.com/carehospital/admin-api/pkg/messaging"
)

func waitFor(t *testing.T, ch <-chan []model.Appointment) []model.Appointment {
	t.Helper()
	select {
	case items, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestWatcher_RefreshesOnChangeEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := messaging.NewMemoryBroker()
	defer broker.Close()
	store := memory.NewStore()
	repo := repository.NewCollection[model.Appointment](store, model.KeyAppointments, messaging.NewChangeNotifier(broker, nil))

	w := NewWatcher(repo, broker, time.Hour)
	require.NoError(t, w.Start(ctx))
	assert.Empty(t, w.Current())

	updates := w.Subscribe(ctx)

	_, err := repo.Save(ctx, seedAppointments())
	require.NoError(t, err)

	items := waitFor(t, updates)
	assert.Len(t, items, 2)
	assert.Len(t, w.Current(), 2)
	assert.Equal(t, int64(1), w.Version())
}

func TestWatcher_ResyncPicksUpSilentWriters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewStore()
	repo := repository.NewCollection[model.Appointment](store, model.KeyAppointments, nil)

	w := NewWatcher(repo, nil, 20*time.Millisecond)
	require.NoError(t, w.Start(ctx))
	updates := w.Subscribe(ctx)

	_, err := repo.Save(ctx, seedAppointments()[:1])
	require.NoError(t, err)

	items := waitFor(t, updates)
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)
}

func TestWatcher_CurrentIsACopy(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCollection[model.Appointment](memory.NewStore(), model.KeyAppointments, nil)
	_, err := repo.Save(ctx, seedAppointments())
	require.NoError(t, err)

	w := NewWatcher(repo, nil, time.Hour)
	require.NoError(t, w.Refresh(ctx))

	items := w.Current()
	items[0].Status = model.AppointmentStatusCancelled
	assert.Equal(t, model.AppointmentStatusPending, w.Current()[0].Status)
}

func TestWatcher_StopClosesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := repository.NewCollection[model.Appointment](memory.NewStore(), model.KeyAppointments, nil)

	w := NewWatcher(repo, nil, time.Hour)
	require.NoError(t, w.Start(ctx))
	updates := w.Subscribe(context.Background())

	cancel()

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	_, ok := <-updates
	assert.False(t, ok)
}
