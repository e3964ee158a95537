package throttle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// memStore mimics redis SETNX with expiration and DEL
type memStore struct {
	now  time.Time
	keys map[string]time.Time
	err  error
}

func (m *memStore) SetNX(_ context.Context, key string, _ any, exp time.Duration) *redis.BoolCmd {
	if m.err != nil {
		return redis.NewBoolResult(false, m.err)
	}
	if until, ok := m.keys[key]; ok && m.now.Before(until) {
		return redis.NewBoolResult(false, nil)
	}
	m.keys[key] = m.now.Add(exp)
	return redis.NewBoolResult(true, nil)
}

func (m *memStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := m.keys[key]; ok {
			delete(m.keys, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedis_Allow(t *testing.T) {
	t.Run("once per cooldown", func(t *testing.T) {
		store := &memStore{now: time.Now(), keys: map[string]time.Time{}}
		th := NewRedis(store, "", time.Minute)

		ok, err := th.Allow(t.Context(), "jane@example.com")
		require.NoError(t, err)
		require.True(t, ok, "first call allowed")

		ok, err = th.Allow(t.Context(), "jane@example.com")
		require.NoError(t, err)
		require.False(t, ok, "second call within cooldown is throttled")

		ok, err = th.Allow(t.Context(), "john@example.com")
		require.NoError(t, err)
		require.True(t, ok, "other keys are independent")

		store.now = store.now.Add(time.Minute)
		ok, err = th.Allow(t.Context(), "jane@example.com")
		require.NoError(t, err)
		require.True(t, ok, "allowed again after cooldown")
	})

	t.Run("keys are hashed and prefixed", func(t *testing.T) {
		store := &memStore{now: time.Now(), keys: map[string]time.Time{}}
		th := NewRedis(store, "test:", time.Minute)

		_, err := th.Allow(t.Context(), "jane@example.com")
		require.NoError(t, err)

		require.Len(t, store.keys, 1)
		for key := range store.keys {
			require.True(t, strings.HasPrefix(key, "test:"))
			require.NotContains(t, key, "jane")
		}
	})

	t.Run("released key allowed again", func(t *testing.T) {
		store := &memStore{now: time.Now(), keys: map[string]time.Time{}}
		th := NewRedis(store, "", time.Minute)

		ok, err := th.Allow(t.Context(), "jane@example.com")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, th.Release(t.Context(), "jane@example.com"))
		require.Empty(t, store.keys)

		ok, err = th.Allow(t.Context(), "jane@example.com")
		require.NoError(t, err)
		require.True(t, ok, "slot is free after release")

		require.NoError(t, th.Release(t.Context(), "john@example.com"), "releasing unknown key is fine")
	})

	t.Run("redis error", func(t *testing.T) {
		th := NewRedis(&memStore{err: errors.New("connection refused")}, "", time.Minute)

		ok, err := th.Allow(t.Context(), "jane@example.com")

		require.Error(t, err)
		require.False(t, ok)
		require.Error(t, th.Release(t.Context(), "jane@example.com"))
	})
}
