// Package cache provides the parse-result cache: an in-memory Ristretto tier
// with an optional Redis tier shared across instances. Entries expire a fixed
// TTL after they were stored and are evicted lazily when read.
package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long a parse result stays valid.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxCost bounds the in-memory tier, in bytes of payload.
	DefaultMaxCost = 64 << 20

	stampSize   = 8
	l2WriteWait = 2 * time.Second
)

// Config configures a TTLStore.
type Config struct {
	TTL     time.Duration
	MaxCost int64
	// KeyPrefix namespaces keys in the shared tier.
	KeyPrefix string
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		TTL:       DefaultTTL,
		MaxCost:   DefaultMaxCost,
		KeyPrefix: "ai-proxy:",
	}
}

// Stats are cumulative tier counters.
type Stats struct {
	L1Hits   int64
	L1Misses int64
	L2Hits   int64
	L2Misses int64
	Expired  int64
}

// TTLStore is a two-tier key/value cache. Reads and writes take the caller's
// notion of "now", so expiry is deterministic under test.
type TTLStore struct {
	l1     *ristretto.Cache[string, []byte]
	l2     *redis.Client
	cfg    Config
	logger *zap.Logger

	l1Hits, l1Misses, l2Hits, l2Misses, expired atomic.Int64
}

// NewTTLStore creates a store. redisClient may be nil for a single-tier
// cache.
func NewTTLStore(cfg Config, redisClient *redis.Client, logger *zap.Logger) (*TTLStore, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = DefaultMaxCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l1, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters:        1e5,
		MaxCost:            cfg.MaxCost,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	return &TTLStore{
		l1:     l1,
		l2:     redisClient,
		cfg:    cfg,
		logger: logger.Named("parse_cache"),
	}, nil
}

// Get returns the value stored under key if it is younger than the TTL at
// now. Stale entries are deleted from the in-memory tier.
func (s *TTLStore) Get(ctx context.Context, key string, now time.Time) ([]byte, bool) {
	if raw, ok := s.l1.Get(key); ok {
		if data, fresh := s.unwrap(raw, now); fresh {
			s.l1Hits.Add(1)
			return data, true
		}
		s.l1.Del(key)
		s.expired.Add(1)
	}
	s.l1Misses.Add(1)

	if s.l2 == nil {
		return nil, false
	}
	raw, err := s.l2.Get(ctx, s.cfg.KeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("L2 cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.l2Misses.Add(1)
		return nil, false
	}
	data, fresh := s.unwrap(raw, now)
	if !fresh {
		s.l2Misses.Add(1)
		s.expired.Add(1)
		return nil, false
	}
	s.l2Hits.Add(1)
	s.setL1(key, raw)
	return data, true
}

// Put stores value under key, stamped with now. The shared tier is written
// in the background.
func (s *TTLStore) Put(ctx context.Context, key string, value []byte, now time.Time) {
	raw := wrap(value, now)
	s.setL1(key, raw)

	if s.l2 == nil {
		return
	}
	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l2WriteWait)
		defer cancel()
		if err := s.l2.Set(wctx, s.cfg.KeyPrefix+key, raw, s.cfg.TTL).Err(); err != nil {
			s.logger.Warn("L2 cache write failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

// Delete removes key from both tiers.
func (s *TTLStore) Delete(ctx context.Context, key string) error {
	s.l1.Del(key)
	if s.l2 != nil {
		if err := s.l2.Del(ctx, s.cfg.KeyPrefix+key).Err(); err != nil {
			return fmt.Errorf("L2 delete failed: %w", err)
		}
	}
	return nil
}

// Stats returns a snapshot of the tier counters.
func (s *TTLStore) Stats() Stats {
	return Stats{
		L1Hits:   s.l1Hits.Load(),
		L1Misses: s.l1Misses.Load(),
		L2Hits:   s.l2Hits.Load(),
		L2Misses: s.l2Misses.Load(),
		Expired:  s.expired.Load(),
	}
}

// Close releases the in-memory tier. The Redis client is owned by the caller.
func (s *TTLStore) Close() {
	s.l1.Close()
}

func (s *TTLStore) setL1(key string, raw []byte) {
	s.l1.Set(key, raw, int64(len(raw)))
	s.l1.Wait()
}

// unwrap splits a stored entry and reports whether it is still fresh.
func (s *TTLStore) unwrap(raw []byte, now time.Time) ([]byte, bool) {
	if len(raw) < stampSize {
		return nil, false
	}
	stored := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:stampSize])))
	if now.Sub(stored) >= s.cfg.TTL {
		return nil, false
	}
	return raw[stampSize:], true
}

// wrap prefixes value with the store time in Unix nanoseconds.
func wrap(value []byte, now time.Time) []byte {
	raw := make([]byte, stampSize+len(value))
	binary.BigEndian.PutUint64(raw, uint64(now.UnixNano()))
	copy(raw[stampSize:], value)
	return raw
}
