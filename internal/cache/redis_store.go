package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ecommerce-dashboard/internal/rfm"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "rfm:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore shares RFM results between dashboard instances. Results are
// stored as JSON under rfm:<fingerprint>.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client. A zero ttl keeps entries
// until evicted by Redis.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisStore) key(fingerprint uint64) string {
	return s.keyPrefix + strconv.FormatUint(fingerprint, 16)
}

func (s *RedisStore) Get(ctx context.Context, fingerprint uint64) (*rfm.Result, bool, error) {
	data, err := s.client.Get(ctx, s.key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rfm result: %w", err)
	}

	var result rfm.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode rfm result: %w", err)
	}
	return &result, true, nil
}

func (s *RedisStore) Set(ctx context.Context, fingerprint uint64, result *rfm.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode rfm result: %w", err)
	}
	if err := s.client.Set(ctx, s.key(fingerprint), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store rfm result: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ rfm.Store = (*RedisStore)(nil)
