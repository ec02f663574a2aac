// Package bootstrap opens the configured collection store and change broker
// shared by the API and the worker.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/carehospital/admin-api/internal/config"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/repository/memory"
	"github.com/carehospital/admin-api/internal/repository/postgres"
	redisstore "github.com/carehospital/admin-api/internal/repository/redis"
	"github.com/carehospital/admin-api/pkg/messaging"
	"github.com/carehospital/admin-api/pkg/messaging/redis"
	"github.com/carehospital/admin-api/pkg/metrics"
)

// Storage is an opened backend: the instrumented store, the broker that
// carries its change events and the typed collections over both.
type Storage struct {
	Driver      string
	Store       repository.CollectionStore
	Broker      messaging.Broker
	Collections *repository.Collections

	closers []func() error
}

// OpenStorage connects the driver named in cfg.Storage. Redis carries change
// events over pub/sub; memory and postgres use an in-process broker, so only
// writers in this process are announced and the watcher's resync covers the rest.
func OpenStorage(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Storage, error) {
	s := &Storage{Driver: cfg.Storage.Driver}

	var store repository.CollectionStore
	switch cfg.Storage.Driver {
	case "redis":
		client, err := redis.Connect(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		store = redisstore.NewStore(client, cfg.Storage.KeyPrefix)
		s.Broker = redis.NewRedisBroker(client, log.Logger.With().Str("component", "broker").Logger())

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		if err := postgres.Migrate(db); err != nil {
			_ = s.Close()
			return nil, err
		}
		store = postgres.NewCollectionStore(db)
		s.Broker = messaging.NewMemoryBroker()

	case "memory":
		store = memory.NewStore()
		s.Broker = messaging.NewMemoryBroker()

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	s.Store = repository.NewInstrumentedStore(store, cfg.Storage.Driver, m)
	s.Collections = repository.NewCollections(s.Store, messaging.NewChangeNotifier(s.Broker, m))

	log.Info().Str("driver", cfg.Storage.Driver).Msg("collection store ready")
	return s, nil
}

// Close releases the broker, then the connections in reverse order.
func (s *Storage) Close() error {
	var errs []error
	if s.Broker != nil {
		errs = append(errs, s.Broker.Close())
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		err := s.closers[i]()
		if errors.Is(err, goredis.ErrClosed) {
			continue
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
