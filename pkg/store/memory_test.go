package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := payload{Name: "BTC", Score: 42.5}
	err := s.Set(ctx, "analysis:BTC", in, 0)
	require.NoError(t, err)

	var out payload
	err = s.Get(ctx, "analysis:BTC", &out)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	var out payload
	err := s.Get(context.Background(), "does-not-exist", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Set(ctx, "short", payload{Name: "x"}, 10*time.Millisecond)
	require.NoError(t, err)

	var out payload
	require.NoError(t, s.Get(ctx, "short", &out))

	time.Sleep(20 * time.Millisecond)
	err = s.Get(ctx, "short", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteAndExists(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", 1, 0))
	require.NoError(t, s.Set(ctx, "b", 2, 0))

	ok, err := s.Exists(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "a", "b"))

	ok, err = s.Exists(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Expire(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", 0))

	ok, err := s.Expire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	var out string
	assert.ErrorIs(t, s.Get(ctx, "k", &out), ErrNotFound)

	ok, err = s.Expire(ctx, "missing", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_SetMembers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.AddMember(ctx, "trades:open", "t1"))
	require.NoError(t, s.AddMember(ctx, "trades:open", "t2"))
	require.NoError(t, s.AddMember(ctx, "trades:open", "t2"))

	members, err := s.Members(ctx, "trades:open")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, members)

	require.NoError(t, s.RemoveMember(ctx, "trades:open", "t1"))
	members, err = s.Members(ctx, "trades:open")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, members)
}

func TestMemoryStore_MembersEmpty(t *testing.T) {
	s := NewMemoryStore()

	members, err := s.Members(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMemoryStore_TryLock(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.TryLock(ctx, "lock:trade:t1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryLock(ctx, "lock:trade:t1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Unlock(ctx, "lock:trade:t1"))

	ok, err = s.TryLock(ctx, "lock:trade:t1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_TryLockExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.TryLock(ctx, "lock:trade:t2", 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = s.TryLock(ctx, "lock:trade:t2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
