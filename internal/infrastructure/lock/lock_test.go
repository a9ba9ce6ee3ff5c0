package lock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"repayment-engine/internal/pkg/apperrors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestMemoryLocker_SerialisesSameLoan(t *testing.T) {
	l := NewMemoryLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), 1)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.held())
}

func TestMemoryLocker_IndependentLoans(t *testing.T) {
	l := NewMemoryLocker()

	unlockA, err := l.Lock(context.Background(), 1)
	require.NoError(t, err)
	unlockB, err := l.Lock(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, l.held())
	unlockA()
	unlockA()
	unlockB()
	assert.Equal(t, 0, l.held())
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	l := NewMemoryLocker()
	unlock, err := l.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, 1)

	assert.True(t, errors.Is(err, apperrors.ErrConcurrencyConflict))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, l.held())
}

type fakeRedis struct {
	mu     sync.Mutex
	keys   map[string]string
	setErr error
	sets   int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]string)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	if _, taken := f.keys[key]; taken {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[keys[0]] == args[0] {
		delete(f.keys, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.keys[key]
	return v, ok
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	client := newFakeRedis()
	l := NewRedisLocker(client, time.Second, 100*time.Millisecond, logger)

	unlock, err := l.Lock(context.Background(), 42)
	require.NoError(t, err)
	_, held := client.value("repayment:loan-lock:42")
	assert.True(t, held)

	unlock()
	_, held = client.value("repayment:loan-lock:42")
	assert.False(t, held)
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	client := newFakeRedis()
	l := NewRedisLocker(client, time.Second, 100*time.Millisecond, logger)

	unlock, err := l.Lock(context.Background(), 42)
	require.NoError(t, err)

	client.mu.Lock()
	client.keys["repayment:loan-lock:42"] = "someone-else"
	client.mu.Unlock()
	unlock()

	owner, held := client.value("repayment:loan-lock:42")
	assert.True(t, held)
	assert.Equal(t, "someone-else", owner)
}

func TestRedisLocker_BusyLoanTimesOut(t *testing.T) {
	client := newFakeRedis()
	client.keys["repayment:loan-lock:42"] = "holder"
	l := NewRedisLocker(client, time.Second, 120*time.Millisecond, logger)

	_, err := l.Lock(context.Background(), 42)

	assert.True(t, errors.Is(err, apperrors.ErrConcurrencyConflict))
	assert.Greater(t, client.sets, 1, "should retry before giving up")
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	client := newFakeRedis()
	l := NewRedisLocker(client, time.Second, time.Second, logger)

	first, err := l.Lock(context.Background(), 42)
	require.NoError(t, err)
	go func() {
		time.Sleep(60 * time.Millisecond)
		first()
	}()

	second, err := l.Lock(context.Background(), 42)
	require.NoError(t, err)
	second()
}

func TestRedisLocker_ClientError(t *testing.T) {
	client := newFakeRedis()
	client.setErr = errors.New("connection refused")
	l := NewRedisLocker(client, time.Second, time.Second, logger)

	_, err := l.Lock(context.Background(), 42)

	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrConcurrencyConflict))
	assert.Contains(t, err.Error(), "connection refused")
}
