// Package store provides durable key/value backends for the generation
// history: Postgres through pgx and an on-disk SQLite file through gorm.
package store

import "context"

// Store is the durable key/value interface. Each Set replaces the whole value
// atomically.
type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
