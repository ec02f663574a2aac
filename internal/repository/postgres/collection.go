package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carehospital/admin-api/internal/repository"
)

type collectionRow struct {
	Value   []byte `db:"value"`
	Version int64  `db:"version"`
}

// CollectionStore keeps one row per collection key in the collections table.
type CollectionStore struct {
	db *sqlx.DB
}

func NewCollectionStore(db *sqlx.DB) *CollectionStore {
	return &CollectionStore{db: db}
}

func (s *CollectionStore) Load(ctx context.Context, key string) ([]byte, int64, error) {
	query := `SELECT value, version FROM collections WHERE key = $1`

	var row collectionRow
	if err := s.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to load collection %s: %w", key, err)
	}
	return row.Value, row.Version, nil
}

func (s *CollectionStore) Save(ctx context.Context, key string, value []byte) (int64, error) {
	query := `
		INSERT INTO collections (key, value, version, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
			version = collections.version + 1,
			updated_at = NOW()
		RETURNING version
	`

	var version int64
	if err := s.db.GetContext(ctx, &version, query, key, string(value)); err != nil {
		return 0, fmt.Errorf("failed to save collection %s: %w", key, err)
	}
	return version, nil
}

func (s *CollectionStore) CompareAndSave(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	var (
		query string
		args  []interface{}
	)

	if expected == 0 {
		query = `
			INSERT INTO collections (key, value, version, updated_at)
			VALUES ($1, $2, 1, NOW())
			ON CONFLICT (key) DO NOTHING
			RETURNING version
		`
		args = []interface{}{key, string(value)}
	} else {
		query = `
			UPDATE collections
			SET value = $2, version = version + 1, updated_at = NOW()
			WHERE key = $1 AND version = $3
			RETURNING version
		`
		args = []interface{}{key, string(value), expected}
	}

	var version int64
	if err := s.db.GetContext(ctx, &version, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrVersionConflict
		}
		return 0, fmt.Errorf("failed to save collection %s: %w", key, err)
	}
	return version, nil
}

func (s *CollectionStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, `SELECT key FROM collections ORDER BY key`); err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return keys, nil
}

func (s *CollectionStore) Close() error {
	return s.db.Close()
}
