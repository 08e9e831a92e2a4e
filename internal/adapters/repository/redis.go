package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/riftelo/pkg/logger"
)

// RedisStore keeps each entry as one JSON value plus an index set of hashes.
// Writes go through MULTI/EXEC.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger logger.Logger
}

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s, err := NewRedisStoreFromClient(ctx, client, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(ctx context.Context, client *redis.Client, opts ...Option) (*RedisStore, error) {
	o := buildOptions(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	o.logger.Info(ctx, "redis store ready", logger.String("prefix", o.keyPrefix))
	return &RedisStore{client: client, prefix: o.keyPrefix, logger: o.logger}, nil
}

func (s *RedisStore) entryKey(hash string) string { return s.prefix + ":entry:" + hash }
func (s *RedisStore) indexKey() string            { return s.prefix + ":hashes" }

// Lookup implements Store.
func (s *RedisStore) Lookup(ctx context.Context, hash string) (Entry, error) {
	start := time.Now()
	defer observe("lookup", start)

	raw, err := s.client.Get(ctx, s.entryKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, e Entry) error {
	if e.ConfigHash == "" {
		return ErrEmptyHash
	}
	start := time.Now()
	defer observe("save", start)

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.entryKey(e.ConfigHash))
		p.Set(ctx, s.entryKey(e.ConfigHash), raw, 0)
		p.SAdd(ctx, s.indexKey(), e.ConfigHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, hash string) error {
	start := time.Now()
	defer observe("delete", start)

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.entryKey(hash))
		p.SRem(ctx, s.indexKey(), hash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Hashes implements Store.
func (s *RedisStore) Hashes(ctx context.Context) ([]string, error) {
	out, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list hashes: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// Close implements Store.
func (s *RedisStore) Close() error { return s.client.Close() }
