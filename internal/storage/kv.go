// Package storage is the persistence adapter: it keeps the events and
// registrations records in a key-value backend and validates them on load.
package storage

import (
	"context"
)

// Driver identifies a key-value backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverRedis    Driver = "redis"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// KV is the substrate the adapter writes named records to. Last write wins.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Driver() Driver
	Close() error
}
