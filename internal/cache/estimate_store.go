package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mirzaik-wcc/contractorlens/internal/clock"
	estimatedomain "github.com/mirzaik-wcc/contractorlens/internal/estimate/domain"
	redis "github.com/redis/go-redis/v9"
)

const redisEstimatePrefix = "contractorlens:estimate:"

// EstimateStore holds complete estimates. Implementations never hand out a value
// that another caller can mutate.
type EstimateStore interface {
	Get(ctx context.Context, key string) (*estimatedomain.Estimate, bool, error)
	Set(ctx context.Context, key string, estimate *estimatedomain.Estimate, ttl time.Duration) error
	Flush(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

type memoryEstimateStore struct {
	entries *TTLCache[string, *estimatedomain.Estimate]
}

func NewMemoryEstimateStore(clk clock.Clock, maxKeys int, onEvict func()) EstimateStore {
	return &memoryEstimateStore{
		entries: NewTTLCache[string, *estimatedomain.Estimate](clk, maxKeys, onEvict),
	}
}

func (s *memoryEstimateStore) Get(_ context.Context, key string) (*estimatedomain.Estimate, bool, error) {
	estimate, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return estimate.Clone(), true, nil
}

func (s *memoryEstimateStore) Set(_ context.Context, key string, estimate *estimatedomain.Estimate, ttl time.Duration) error {
	if estimate == nil {
		return nil
	}
	s.entries.Set(key, estimate.Clone(), ttl)
	return nil
}

func (s *memoryEstimateStore) Flush(context.Context) error {
	s.entries.Flush()
	return nil
}

func (s *memoryEstimateStore) Len(context.Context) (int, error) {
	return s.entries.Len(), nil
}

// redisEstimateStore shares estimates across processes. Size is bounded by TTL only.
type redisEstimateStore struct {
	client *redis.Client
}

func NewRedisEstimateStore(client *redis.Client) EstimateStore {
	return &redisEstimateStore{client: client}
}

func (s *redisEstimateStore) Get(ctx context.Context, key string) (*estimatedomain.Estimate, bool, error) {
	payload, err := s.client.Get(ctx, redisEstimatePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var estimate estimatedomain.Estimate
	if err := json.Unmarshal(payload, &estimate); err != nil {
		return nil, false, fmt.Errorf("decode cached estimate: %w", err)
	}
	return &estimate, true, nil
}

func (s *redisEstimateStore) Set(ctx context.Context, key string, estimate *estimatedomain.Estimate, ttl time.Duration) error {
	if estimate == nil || ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(estimate)
	if err != nil {
		return fmt.Errorf("encode estimate: %w", err)
	}
	return s.client.Set(ctx, redisEstimatePrefix+key, payload, ttl).Err()
}

func (s *redisEstimateStore) Flush(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *redisEstimateStore) Len(ctx context.Context) (int, error) {
	keys, err := s.keys(ctx)
	return len(keys), err
}

func (s *redisEstimateStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, redisEstimatePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
