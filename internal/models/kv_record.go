package models

import (
	"time"

	"github.com/uptrace/bun"
)

// KVRecord is one named record in the SQL key-value table.
type KVRecord struct {
	bun.BaseModel `bun:"table:kv_records"`

	Bucket    string    `bun:"bucket,pk"`
	Payload   []byte    `bun:"payload,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
