package repository

import (
	"context"
	"errors"
	"time"

	"github.com/carehospital/admin-api/pkg/metrics"
)

// InstrumentedStore records prometheus metrics around another store.
type InstrumentedStore struct {
	next    CollectionStore
	backend string
	metrics *metrics.Metrics
}

func NewInstrumentedStore(next CollectionStore, backend string, m *metrics.Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend, metrics: m}
}

func (s *InstrumentedStore) Load(ctx context.Context, key string) ([]byte, int64, error) {
	start := time.Now()
	raw, version, err := s.next.Load(ctx, key)
	s.observe("load", key, start, err)
	return raw, version, err
}

func (s *InstrumentedStore) Save(ctx context.Context, key string, value []byte) (int64, error) {
	start := time.Now()
	version, err := s.next.Save(ctx, key, value)
	s.observe("save", key, start, err)
	return version, err
}

func (s *InstrumentedStore) CompareAndSave(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	start := time.Now()
	version, err := s.next.CompareAndSave(ctx, key, value, expected)
	s.observe("compare_and_save", key, start, err)
	return version, err
}

func (s *InstrumentedStore) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := s.next.Keys(ctx)
	s.observe("keys", "", start, err)
	return keys, err
}

func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}

func (s *InstrumentedStore) observe(op, key string, start time.Time, err error) {
	s.metrics.StoreLatency.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())

	status := "success"
	switch {
	case errors.Is(err, ErrVersionConflict):
		status = "conflict"
		s.metrics.StoreConflicts.WithLabelValues(key).Inc()
	case err != nil:
		status = "error"
	}
	s.metrics.StoreOperations.WithLabelValues(s.backend, op, status).Inc()
}
