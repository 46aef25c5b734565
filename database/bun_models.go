package database

import (
	"time"

	"github.com/uptrace/bun"
)

// BunKV represents the kv_store table for Bun ORM
type BunKV struct {
	bun.BaseModel `bun:"table:kv_store,alias:kv"`

	Key       string    `bun:"kv_key,pk"`
	Value     string    `bun:"kv_value,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// appliedMigration is a row of the migrations tracking table
type appliedMigration struct {
	bun.BaseModel `bun:"table:bun_schema_migrations"`
	Version       string `bun:"version"`
}
