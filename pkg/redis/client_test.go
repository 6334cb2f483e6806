package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erandesamadhan2003/autopost-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("generate:user-1")

	allowed, count, err := client.FixedWindowAllow(ctx, "generate:user-1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, time.Minute, mock.ttl[key])
	assert.Equal(t, 1, mock.expires)

	allowed, count, err = client.FixedWindowAllow(ctx, "generate:user-1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, 1, mock.expires, "expiry must not be pushed out by later hits")

	allowed, _, err = client.FixedWindowAllow(ctx, "generate:user-1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, err = client.FixedWindowAllow(ctx, "generate:user-2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "scopes are counted separately")
}

func TestFixedWindowAllowRearmsLostExpiry(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("generate:user-1")
	mock.counters[key] = 5

	_, count, err := client.FixedWindowAllow(ctx, "generate:user-1", 10, 30*time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)
	assert.Equal(t, 30*time.Second, mock.ttl[key])
}

func TestFixedWindowAllowRejectsBadWindow(t *testing.T) {
	client := &Client{store: newMockCmdable()}
	_, _, err := client.FixedWindowAllow(context.Background(), "s", 1, 0)
	require.Error(t, err)
}

func TestSetNXAndReleaseIfOwner(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "k", "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, "k", "owner-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	released, err := client.ReleaseIfOwner(ctx, "k", "owner-b")
	require.NoError(t, err)
	assert.False(t, released)
	assert.Equal(t, "owner-a", mock.data["k"])

	released, err = client.ReleaseIfOwner(ctx, "k", "owner-a")
	require.NoError(t, err)
	assert.True(t, released)
	assert.NotContains(t, mock.data, "k")
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	assert.Error(t, client.Ping(context.Background()))
	_, err := client.ReleaseIfOwner(context.Background(), "k", "o")
	assert.Error(t, err)
	_, _, err = client.FixedWindowAllow(context.Background(), "s", 1, time.Second)
	assert.Error(t, err)
	assert.NoError(t, client.Close(), "close should be a no-op")
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, time.Second, opts.DialTimeout)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "autopost:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "autopost:lock:scheduled-publish", client.LockKey("scheduled-publish"))
	assert.Equal(t, "autopost:lock", client.LockKey(""), "empty parts are skipped")
}

// mockCmdable emulates the two Lua scripts the client sends.
type mockCmdable struct {
	data     map[string]string
	counters map[string]int64
	ttl      map[string]time.Duration
	expires  int
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:     map[string]string{},
		counters: map[string]int64{},
		ttl:      map[string]time.Duration{},
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	switch script {
	case incrWindowScript:
		m.counters[key]++
		if _, armed := m.ttl[key]; m.counters[key] == 1 || !armed {
			m.ttl[key] = time.Duration(args[0].(int64)) * time.Millisecond
			m.expires++
		}
		return redis.NewCmdResult(m.counters[key], nil)
	case releaseScript:
		if m.data[key] != args[0] {
			return redis.NewCmdResult(int64(0), nil)
		}
		delete(m.data, key)
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
}
