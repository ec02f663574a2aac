package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/carehospital/admin-api/pkg/logger"
)

// DefaultMutateRetries is how many times Mutate retries after a version conflict.
const DefaultMutateRetries = 3

// Snapshot is one decoded read of a collection.
type Snapshot[T any] struct {
	Items   []T
	Version int64
}

// MutateFunc receives a freshly loaded collection and returns its
// replacement. Returning ErrNoChange skips the write.
type MutateFunc[T any] func(items []T) ([]T, error)

// Collection is a typed view over one key of a CollectionStore.
type Collection[T any] struct {
	store    CollectionStore
	key      string
	notifier ChangeNotifier
	retries  int
}

func NewCollection[T any](store CollectionStore, key string, notifier ChangeNotifier) *Collection[T] {
	return &Collection[T]{
		store:    store,
		key:      key,
		notifier: notifier,
		retries:  DefaultMutateRetries,
	}
}

func (c *Collection[T]) Key() string {
	return c.key
}

// Load reads the whole collection. A stored value that does not decode is
// logged and read as empty; the version is kept so the next write replaces it.
func (c *Collection[T]) Load(ctx context.Context) (Snapshot[T], error) {
	raw, version, err := c.store.Load(ctx, c.key)
	if err != nil {
		return Snapshot[T]{}, fmt.Errorf("failed to load %s: %w", c.key, err)
	}

	items, err := decode[T](raw)
	if err != nil {
		logger.FromContext(ctx).Warn().
			Err(err).
			Str("key", c.key).
			Int64("version", version).
			Msg("stored collection is corrupt, reading as empty")
		items = []T{}
	}

	return Snapshot[T]{Items: items, Version: version}, nil
}

func (c *Collection[T]) Save(ctx context.Context, items []T) (int64, error) {
	raw, err := encode(items)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", c.key, err)
	}

	version, err := c.store.Save(ctx, c.key, raw)
	if err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", c.key, err)
	}

	c.notify(ctx, version)
	return version, nil
}

func (c *Collection[T]) CompareAndSave(ctx context.Context, items []T, expected int64) (int64, error) {
	raw, err := encode(items)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", c.key, err)
	}

	version, err := c.store.CompareAndSave(ctx, c.key, raw, expected)
	if err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", c.key, err)
	}

	c.notify(ctx, version)
	return version, nil
}

// Mutate runs load, fn, compare-and-save, reloading and retrying on
// version conflicts.
func (c *Collection[T]) Mutate(ctx context.Context, fn MutateFunc[T]) ([]T, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snap, err := c.Load(ctx)
		if err != nil {
			return nil, err
		}

		next, err := fn(snap.Items)
		if err != nil {
			return nil, err
		}

		if _, err := c.CompareAndSave(ctx, next, snap.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				logger.FromContext(ctx).Debug().
					Str("key", c.key).
					Int("attempt", attempt+1).
					Msg("version conflict, retrying")
				continue
			}
			return nil, err
		}
		return next, nil
	}

	return nil, lastErr
}

func (c *Collection[T]) notify(ctx context.Context, version int64) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, c.key, version); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("key", c.key).Msg("failed to publish change event")
	}
}

func decode[T any](raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func encode[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}
