package history

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/kiranshivaraju/reelgen/internal/cache"
	"github.com/kiranshivaraju/reelgen/internal/store"
)

// cacheBackend stores the history in a Cache without expiry.
type cacheBackend struct {
	cache.Cache
}

// FromCache adapts c to a Backend. Entries never expire.
func FromCache(c cache.Cache) Backend {
	return cacheBackend{c}
}

func (b cacheBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.Cache.Set(ctx, key, value, 0)
}

// Open builds the backend named by rawURL:
//
//	memory://                  process-local, lost on exit
//	redis://host:6379/0        Redis (rediss:// for TLS)
//	postgres://user@host/db    Postgres, schema migrated on open
//	sqlite:///path/history.db  local SQLite file
//
// The returned Closer releases the backend's connections.
func Open(ctx context.Context, rawURL string) (Backend, io.Closer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse history url: %w", err)
	}

	switch u.Scheme {
	case "memory":
		c := cache.NewMemoryCache()
		return FromCache(c), c, nil

	case "redis", "rediss":
		c, err := cache.NewRedisCache(rawURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create redis cache: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return FromCache(c), c, nil

	case "postgres", "postgresql":
		if err := store.RunMigrations(rawURL); err != nil {
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		pool, err := store.Connect(ctx, rawURL, store.DefaultPoolConfig)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewPostgresStore(pool)
		return s, s, nil

	case "sqlite":
		path := strings.TrimPrefix(rawURL, "sqlite://")
		if path == "" {
			return nil, nil, fmt.Errorf("sqlite history url has no path: %q", rawURL)
		}
		s, err := store.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	default:
		return nil, nil, fmt.Errorf("unsupported history backend %q", u.Scheme)
	}
}
