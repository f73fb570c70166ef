package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/onboardhq/pulse-backend/internal/logger"
)

// CooldownStore tracks short-lived dedup keys so repeated detections within a
// window refresh an existing alert instead of inserting a new one.
type CooldownStore interface {
	// Acquire returns true when the key was not held yet; the key then stays
	// held for ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Close() error
}

type cooldownStore struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewCooldownStore(log *logger.Logger) (CooldownStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_COOLDOWN_PREFIX"))
	if prefix == "" {
		prefix = "alert_cooldown"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &cooldownStore{
		log:    log.With("service", "RedisCooldownStore"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (s *cooldownStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s == nil || s.rdb == nil {
		return false, fmt.Errorf("cooldown store not initialized")
	}
	ok, err := s.rdb.SetNX(ctx, s.prefix+":"+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *cooldownStore) Release(ctx context.Context, key string) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("cooldown store not initialized")
	}
	return s.rdb.Del(ctx, s.prefix+":"+key).Err()
}

func (s *cooldownStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
