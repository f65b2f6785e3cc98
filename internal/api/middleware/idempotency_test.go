package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/idempotency"
)

// fakeRedis backs the idempotency store with an in-memory map so the
// middleware contract can be exercised without a real Redis.
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
	f.data[key] = fmt.Sprintf("%s", value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprintf("%s", value)
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

func newIdempotentHandler(store *idempotency.Store, calls *atomic.Int64, status func() int) http.Handler {
	mw := IdempotencyMiddleware(store, zap.NewNop())
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status())
		fmt.Fprintf(w, `{"call":%d}`, n)
	}))
}

func postWithKey(t *testing.T, h http.Handler, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/wizard/s1/create", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyRequiresKey(t *testing.T) {
	var calls atomic.Int64
	h := newIdempotentHandler(idempotency.NewStore(newFakeRedis(), time.Minute), &calls, func() int { return http.StatusCreated })

	rec := postWithKey(t, h, "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls.Load())
}

func TestIdempotencyReplaysRecordedResponse(t *testing.T) {
	var calls atomic.Int64
	h := newIdempotentHandler(idempotency.NewStore(newFakeRedis(), time.Minute), &calls, func() int { return http.StatusCreated })

	first := postWithKey(t, h, "key-1", `{"amount":"1000"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.JSONEq(t, `{"call":1}`, first.Body.String())

	replay := postWithKey(t, h, "key-1", `{"amount":"1000"}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.JSONEq(t, `{"call":1}`, replay.Body.String(), "replay serves the stored body")
	assert.Equal(t, "redis", replay.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, int64(1), calls.Load(), "handler must run once per key")
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	var calls atomic.Int64
	h := newIdempotentHandler(idempotency.NewStore(newFakeRedis(), time.Minute), &calls, func() int { return http.StatusCreated })

	require.Equal(t, http.StatusCreated, postWithKey(t, h, "key-1", `{"amount":"1000"}`).Code)

	conflict := postWithKey(t, h, "key-1", `{"amount":"2000"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, int64(1), calls.Load())
}

func TestIdempotencyReleasesOnServerError(t *testing.T) {
	var calls atomic.Int64
	var status atomic.Int64
	status.Store(http.StatusBadGateway)
	h := newIdempotentHandler(idempotency.NewStore(newFakeRedis(), time.Minute), &calls, func() int { return int(status.Load()) })

	failed := postWithKey(t, h, "key-1", `{}`)
	require.Equal(t, http.StatusBadGateway, failed.Code)

	// The reservation was dropped, so the retry reaches the handler again.
	status.Store(http.StatusCreated)
	retry := postWithKey(t, h, "key-1", `{}`)
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, int64(2), calls.Load())
}

func TestIdempotencyPassThroughWithoutBackend(t *testing.T) {
	var calls atomic.Int64
	h := newIdempotentHandler(idempotency.NewStore(nil, time.Minute), &calls, func() int { return http.StatusCreated })

	// No backend: every request goes through, key or not.
	require.Equal(t, http.StatusCreated, postWithKey(t, h, "", `{}`).Code)
	require.Equal(t, http.StatusCreated, postWithKey(t, h, "key-1", `{}`).Code)
	assert.Equal(t, int64(2), calls.Load())
}
