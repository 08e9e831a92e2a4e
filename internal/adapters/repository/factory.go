package repository

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Settings selects and configures a backend.
type Settings struct {
	Backend     string
	PostgresDSN string
	Redis       RedisConfig
}

// Open builds the Store named by s.Backend.
func Open(ctx context.Context, s Settings, opts ...Option) (Store, error) {
	switch s.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendPostgres:
		return NewPostgresStore(ctx, s.PostgresDSN, opts...)
	case BackendRedis:
		return NewRedisStore(ctx, s.Redis, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
}
