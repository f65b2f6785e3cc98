// Package idempotency guards the wizard's commit endpoints against
// duplicate submission across instances. Commit actions take 1-2 seconds
// of simulated network delay, so double-click re-entrancy is a real risk.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("idempotency key not found")
	ErrHashMismatch = errors.New("idempotency key body mismatch")
	ErrInProgress   = errors.New("idempotency key in progress")
)

const redisKeyPrefix = "idempotency"

// Record is a stored response for a previously seen key.
type Record struct {
	Key         string `json:"key"`
	RequestHash string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
	InProgress  bool   `json:"in_progress"`
}

// Store keeps idempotency records in Redis. A nil client disables the
// store; middleware treats that as pass-through.
type Store struct {
	redis redis.Cmdable
	ttl   time.Duration
}

// NewStore wraps a Redis client.
func NewStore(redis redis.Cmdable, ttl time.Duration) *Store {
	return &Store{redis: redis, ttl: ttl}
}

// Enabled reports whether the store has a backend.
func (s *Store) Enabled() bool {
	return s != nil && s.redis != nil
}

// Lookup returns the recorded response for key, ErrInProgress when a
// reservation exists without a response yet, ErrNotFound otherwise.
func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	val, err := s.redis.Get(ctx, redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	if rec.RequestHash != requestHash {
		return nil, ErrHashMismatch
	}
	if rec.InProgress {
		return nil, ErrInProgress
	}
	return &rec, nil
}

// Reserve marks key as in progress. Returns false when the key is already
// reserved or finalized.
func (s *Store) Reserve(ctx context.Context, key, requestHash string) (bool, error) {
	rec := Record{Key: key, RequestHash: requestHash, InProgress: true}
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encode idempotency record: %w", err)
	}
	ok, err := s.redis.SetNX(ctx, redisKey(key), payload, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Finalize replaces the reservation with the served response.
func (s *Store) Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) {
	rec := Record{
		Key:         key,
		RequestHash: requestHash,
		Status:      status,
		Body:        body,
		ContentType: contentType,
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		zap.L().Warn("marshal idempotency record", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, redisKey(key), payload, s.ttl).Err(); err != nil {
		zap.L().Warn("finalize idempotency key failed", zap.Error(err))
	}
}

// Release drops a reservation after a failed request so the client can retry.
func (s *Store) Release(ctx context.Context, key string) {
	if err := s.redis.Del(ctx, redisKey(key)).Err(); err != nil {
		zap.L().Warn("release idempotency key failed", zap.Error(err))
	}
}

// WaitForCompletion polls until a concurrent request finalizes the key.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, ErrInProgress) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
				continue
			}
		}
		return nil, err
	}
}

func redisKey(key string) string {
	return fmt.Sprintf("%s:%s", redisKeyPrefix, key)
}
