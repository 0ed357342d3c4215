package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/backstage/services/dairy/config"
	"example.com/backstage/services/dairy/internal/models"
	"example.com/backstage/services/dairy/internal/repositories"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// RedisCodeStore keeps one-time codes in Redis with a TTL matching their
// expiry. The expiry is also stored in the value and checked by the caller.
type RedisCodeStore struct {
	client *redis.Client
}

// NewRedisCodeStore connects to Redis
func NewRedisCodeStore(cfg config.RedisConfig) (*RedisCodeStore, error) {
	if !cfg.Enabled {
		return nil, errors.New("redis is disabled")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCodeStore{client: client}, nil
}

// Put stores a code until its expiry
func (s *RedisCodeStore) Put(ctx context.Context, code *models.OneTimeCode) error {
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return errors.New("one-time code already expired")
	}

	data, err := json.Marshal(storedCode{
		Target:    code.Target,
		CodeHash:  code.CodeHash,
		ExpiresAt: code.ExpiresAt,
		CreatedAt: code.CreatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal one-time code")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, CodeKey(code.Target), data, ttl)
		pipe.Del(ctx, AttemptsKey(code.Target))
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to set one-time code in Redis")
	}
	return nil
}

// Get returns the stored code for a target
func (s *RedisCodeStore) Get(ctx context.Context, target string) (*models.OneTimeCode, error) {
	data, err := s.client.Get(ctx, CodeKey(target)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.Wrap(repositories.ErrNotFound, "one-time code not found in Redis")
		}
		return nil, errors.Wrap(err, "failed to get one-time code from Redis")
	}

	var stored storedCode
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal one-time code")
	}

	return &models.OneTimeCode{
		Target:    stored.Target,
		CodeHash:  stored.CodeHash,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// RecordMiss counts a wrong code for a target. The counter expires with the
// code it belongs to.
func (s *RedisCodeStore) RecordMiss(ctx context.Context, target string) (int, error) {
	ttl, err := s.client.PTTL(ctx, CodeKey(target)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read one-time code TTL from Redis")
	}
	if ttl <= 0 {
		return 0, errors.Wrap(repositories.ErrNotFound, "one-time code not found in Redis")
	}

	var misses *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		misses = pipe.Incr(ctx, AttemptsKey(target))
		pipe.PExpire(ctx, AttemptsKey(target), ttl)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to record one-time code attempt in Redis")
	}
	return int(misses.Val()), nil
}

// Delete removes the code of a target
func (s *RedisCodeStore) Delete(ctx context.Context, target string) error {
	if err := s.client.Del(ctx, CodeKey(target), AttemptsKey(target)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete one-time code from Redis")
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisCodeStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisCodeStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// storedCode is the JSON value kept under a code key. The hash is excluded
// from the model's JSON, so it gets its own shape here.
type storedCode struct {
	Target    string    `json:"target"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CodeKey generates the Redis key of a one-time code
func CodeKey(target string) string {
	return fmt.Sprintf("otp:%s", target)
}

// AttemptsKey generates the Redis key counting wrong codes for a target
func AttemptsKey(target string) string {
	return fmt.Sprintf("otp:attempts:%s", target)
}
