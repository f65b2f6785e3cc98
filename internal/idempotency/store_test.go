package idempotency

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the handful of commands the store issues over an
// in-memory map. Unimplemented Cmdable methods panic if reached.
type fakeRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = stringify(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = stringify(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func TestStoreDisabledWithoutBackend(t *testing.T) {
	assert.False(t, NewStore(nil, time.Minute).Enabled())
	var s *Store
	assert.False(t, s.Enabled())
	assert.True(t, NewStore(newFakeRedis(), time.Minute).Enabled())
}

func TestReserveLookupFinalize(t *testing.T) {
	s := NewStore(newFakeRedis(), time.Minute)
	ctx := context.Background()

	_, err := s.Lookup(ctx, "key-1", "hash-a")
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Reserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	assert.True(t, ok)

	// A reservation blocks both a second reserve and a direct lookup.
	ok, err = s.Reserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = s.Lookup(ctx, "key-1", "hash-a")
	require.ErrorIs(t, err, ErrInProgress)

	s.Finalize(ctx, "key-1", "hash-a", http.StatusCreated, []byte(`{"state":"overview"}`), "application/json")

	rec, err := s.Lookup(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Status)
	assert.JSONEq(t, `{"state":"overview"}`, string(rec.Body))
	assert.Equal(t, "application/json", rec.ContentType)

	// The same key with a different request body is a conflict.
	_, err = s.Lookup(ctx, "key-1", "hash-b")
	require.ErrorIs(t, err, ErrHashMismatch)
}

func TestReleaseAllowsRetry(t *testing.T) {
	s := NewStore(newFakeRedis(), time.Minute)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	require.True(t, ok)

	s.Release(ctx, "key-1")

	ok, err = s.Reserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWaitForCompletion(t *testing.T) {
	s := NewStore(newFakeRedis(), time.Minute)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(80 * time.Millisecond)
		s.Finalize(ctx, "key-1", "hash-a", http.StatusOK, []byte(`{}`), "application/json")
	}()

	rec, err := s.WaitForCompletion(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Status)
}

func TestWaitForCompletionHonorsContext(t *testing.T) {
	s := NewStore(newFakeRedis(), time.Minute)
	ok, err := s.Reserve(context.Background(), "key-1", "hash-a")
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = s.WaitForCompletion(ctx, "key-1", "hash-a")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
