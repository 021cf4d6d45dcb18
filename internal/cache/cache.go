// Package cache holds the Redis read-through cache for balances and
// transaction history, and the invalidation calls the ledger fires after commit.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletledger/internal/logging"
)

const keyPrefix = "ledger:v1:"

// BalanceKey names a user's cached wallet balance.
func BalanceKey(userID int64) string {
	return fmt.Sprintf("%suser:%d:balance", keyPrefix, userID)
}

// HistoryKey names a user's cached transaction history.
func HistoryKey(userID int64) string {
	return fmt.Sprintf("%suser:%d:transactions", keyPrefix, userID)
}

// Store wraps a Redis client. A Store without a client is disabled: Fetch
// always loads and invalidation is a no-op.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New builds a cache store. client may be nil.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{client: client, ttl: ttl, logger: logging.Component(logger, "cache")}
}

// Disabled returns a store that never caches.
func Disabled() *Store {
	return New(nil, 0, nil)
}

// Enabled reports whether a Redis client backs the store.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Fetch decodes the cached value under key into dest. On a miss it calls
// load, stores the result for the configured TTL and decodes it into dest.
// Redis failures degrade to calling load; load errors are returned as is.
//
// Entries live under the key's current generation, read before load runs.
// An invalidation that lands while load is in flight bumps the generation,
// so the late write goes to a key no reader will look up again.
func (s *Store) Fetch(ctx context.Context, key string, dest any, load func(ctx context.Context) (any, error)) error {
	if !s.Enabled() {
		return fill(ctx, dest, load)
	}

	gen, err := s.generation(ctx, key)
	if err != nil {
		s.logger.Warn("cache generation lookup failed", slog.String("key", key), slog.Any("error", err))
		return fill(ctx, dest, load)
	}
	entry := entryKey(key, gen)

	cached, err := s.client.Get(ctx, entry).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(cached, dest); err == nil {
			return nil
		}
		s.logger.Warn("discarding undecodable cache entry", slog.String("key", entry))
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("cache lookup failed", slog.String("key", entry), slog.Any("error", err))
		return fill(ctx, dest, load)
	}

	value, err := load(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	if err := s.client.Set(ctx, entry, payload, s.ttl).Err(); err != nil {
		s.logger.Warn("cache store failed", slog.String("key", entry), slog.Any("error", err))
	}
	return json.Unmarshal(payload, dest)
}

// InvalidateBalance drops the cached balance of userID.
func (s *Store) InvalidateBalance(ctx context.Context, userID int64) error {
	return s.invalidate(ctx, BalanceKey(userID))
}

// InvalidateHistory drops the cached history of userID.
func (s *Store) InvalidateHistory(ctx context.Context, userID int64) error {
	return s.invalidate(ctx, HistoryKey(userID))
}

// Ping checks connectivity; a disabled store is always healthy.
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

func (s *Store) generation(ctx context.Context, key string) (int64, error) {
	gen, err := s.client.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// invalidate retires every entry of key. Entries of older generations are
// left to expire with their TTL.
func (s *Store) invalidate(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.client.Incr(ctx, generationKey(key)).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

func generationKey(key string) string {
	return key + ":gen"
}

func entryKey(key string, gen int64) string {
	return fmt.Sprintf("%s:g%d", key, gen)
}

func fill(ctx context.Context, dest any, load func(ctx context.Context) (any, error)) error {
	value, err := load(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	return json.Unmarshal(payload, dest)
}
