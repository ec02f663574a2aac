package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/pkg/logger"
	"github.com/carehospital/admin-api/pkg/messaging"
)

const DefaultResyncInterval = 2 * time.Second

// Watcher keeps an in-memory copy of the appointments collection current.
// It reloads on every change event for the key and on a fixed resync tick,
// so writers that do not publish are still picked up. Last read wins.
type Watcher struct {
	repo     repository.AppointmentRepository
	broker   messaging.Broker
	interval time.Duration

	mu       sync.RWMutex
	items    []model.Appointment
	version  int64
	loaded   bool
	subs     map[chan []model.Appointment]struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher returns a Watcher; broker may be nil to rely on resync only.
func NewWatcher(repo repository.AppointmentRepository, broker messaging.Broker, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultResyncInterval
	}
	return &Watcher{
		repo:     repo,
		broker:   broker,
		interval: interval,
		subs:     make(map[chan []model.Appointment]struct{}),
		done:     make(chan struct{}),
	}
}

// Start loads the collection once and then watches it until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.Refresh(ctx); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("initial appointment load failed")
	}

	var events <-chan messaging.ChangeEvent
	if w.broker != nil {
		ch, err := messaging.SubscribeChanges(ctx, w.broker)
		if err != nil {
			return err
		}
		events = ch
	}

	go w.run(ctx, events)
	return nil
}

// Done is closed once the watch loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) run(ctx context.Context, events <-chan messaging.ChangeEvent) {
	defer w.stop()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refreshLogged(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Key == w.repo.Key() {
				w.refreshLogged(ctx)
			}
		}
	}
}

func (w *Watcher) refreshLogged(ctx context.Context) {
	if err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("appointment refresh failed")
	}
}

// Refresh reloads the collection and notifies subscribers when the version moved.
func (w *Watcher) Refresh(ctx context.Context) error {
	snap, err := w.repo.Load(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	changed := !w.loaded || snap.Version != w.version
	w.items = snap.Items
	w.version = snap.Version
	w.loaded = true
	if !changed {
		return nil
	}

	// Sends never block, so holding the lock is safe.
	for ch := range w.subs {
		select {
		case ch <- cloneAppointments(snap.Items):
		default:
		}
	}
	return nil
}

// Current returns a copy of the latest snapshot.
func (w *Watcher) Current() []model.Appointment {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneAppointments(w.items)
}

func (w *Watcher) Version() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// Subscribe delivers each new snapshot until ctx is done. Slow readers miss
// intermediate snapshots.
func (w *Watcher) Subscribe(ctx context.Context) <-chan []model.Appointment {
	ch := make(chan []model.Appointment, 1)

	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		close(ch)
		return ch
	default:
	}
	w.subs[ch] = struct{}{}
	w.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-w.done:
			return
		}
		w.mu.Lock()
		if _, ok := w.subs[ch]; ok {
			delete(w.subs, ch)
			close(ch)
		}
		w.mu.Unlock()
	}()
	return ch
}

func (w *Watcher) stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		close(w.done)
		for ch := range w.subs {
			delete(w.subs, ch)
			close(ch)
		}
		w.mu.Unlock()
	})
}

func cloneAppointments(items []model.Appointment) []model.Appointment {
	out := make([]model.Appointment, len(items))
	copy(out, items)
	return out
}
