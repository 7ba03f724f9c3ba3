package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-registration/internal/models"
)

// SQLKV keeps records as rows of a single bucket/payload table. It works with
// any bun dialect; sqlite and postgres are wired in Open.
type SQLKV struct {
	Bun    *bun.DB
	driver Driver
}

// NewSQLKV creates the kv_records table if needed.
func NewSQLKV(ctx context.Context, db *bun.DB, driver Driver) (*SQLKV, error) {
	_, err := db.NewCreateTable().
		Model((*models.KVRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("create kv_records table: %w", err)
	}
	return &SQLKV{Bun: db, driver: driver}, nil
}

func (s *SQLKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec models.KVRecord
	err := s.Bun.NewSelect().
		Model(&rec).
		Where("bucket = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return rec.Payload, true, nil
}

func (s *SQLKV) Set(ctx context.Context, key string, value []byte) error {
	rec := models.KVRecord{
		Bucket:    key,
		Payload:   value,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.Bun.NewInsert().
		Model(&rec).
		On("CONFLICT (bucket) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *SQLKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.Bun.NewDelete().
		Model((*models.KVRecord)(nil)).
		Where("bucket IN (?)", bun.In(keys)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

func (s *SQLKV) Driver() Driver { return s.driver }

func (s *SQLKV) Close() error { return s.Bun.Close() }
