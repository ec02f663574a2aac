package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/carehospital/admin-api/internal/repository"
)

const (
	versionSuffix = ":version"
	digestSuffix  = ":digest"

	loadAttempts = 3
)

// Store keeps each collection at <prefix><key>, its version counter at
// <prefix><key>:version and the digest of the last value it wrote at
// <prefix><key>:digest. A value that no longer matches its digest was written
// behind the store's back; Load adopts it under a new version and
// CompareAndSave refuses to overwrite it.
type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) valueKey(key string) string   { return s.prefix + key }
func (s *Store) versionKey(key string) string { return s.prefix + key + versionSuffix }
func (s *Store) digestKey(key string) string  { return s.prefix + key + digestSuffix }

// digest is empty for an absent value.
func digest(raw []byte) string {
	if raw == nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(raw), 16)
}

// reader is satisfied by both the client and a watched transaction.
type reader interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

type snapshot struct {
	raw     []byte
	version int64
	digest  string
}

func (s *Store) read(ctx context.Context, c reader, key string) (snapshot, error) {
	vals, err := c.MGet(ctx, s.valueKey(key), s.versionKey(key), s.digestKey(key)).Result()
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var snap snapshot
	if v, ok := vals[0].(string); ok {
		snap.raw = []byte(v)
	}
	if v, ok := vals[1].(string); ok {
		snap.version, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return snapshot{}, fmt.Errorf("invalid version for %s: %w", key, err)
		}
	}
	if v, ok := vals[2].(string); ok {
		snap.digest = v
	}
	return snap, nil
}

func foreign(snap snapshot) bool {
	return snap.digest != digest(snap.raw)
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, int64, error) {
	for attempt := 0; attempt < loadAttempts; attempt++ {
		var snap snapshot
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var err error
			snap, err = s.read(ctx, tx, key)
			if err != nil || !foreign(snap) {
				return err
			}

			var incr *redis.IntCmd
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if d := digest(snap.raw); d != "" {
					pipe.Set(ctx, s.digestKey(key), d, 0)
				} else {
					pipe.Del(ctx, s.digestKey(key))
				}
				incr = pipe.Incr(ctx, s.versionKey(key))
				return nil
			})
			if err == nil {
				snap.version = incr.Val()
			}
			return err
		}, s.valueKey(key), s.versionKey(key), s.digestKey(key))

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read %s: %w", key, err)
		}
		return snap.raw, snap.version, nil
	}
	return nil, 0, fmt.Errorf("failed to read %s: %w", key, repository.ErrVersionConflict)
}

func (s *Store) Save(ctx context.Context, key string, value []byte) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.valueKey(key), value, 0)
		pipe.Set(ctx, s.digestKey(key), digest(value), 0)
		incr = pipe.Incr(ctx, s.versionKey(key))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (s *Store) CompareAndSave(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	var incr *redis.IntCmd

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		snap, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		if snap.version != expected || foreign(snap) {
			return repository.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.valueKey(key), value, 0)
			pipe.Set(ctx, s.digestKey(key), digest(value), 0)
			incr = pipe.Incr(ctx, s.versionKey(key))
			return nil
		})
		return err
	}, s.valueKey(key), s.versionKey(key), s.digestKey(key))

	switch {
	case err == nil:
		return incr.Val(), nil
	case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, repository.ErrVersionConflict
	default:
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := strings.TrimPrefix(iter.Val(), s.prefix)
		if strings.HasSuffix(k, versionSuffix) || strings.HasSuffix(k, digestSuffix) {
			continue
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op; the client is shared with the broker and closed by its owner.
func (s *Store) Close() error {
	return nil
}
