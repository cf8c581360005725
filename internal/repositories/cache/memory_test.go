package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSetGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	type balance struct {
		WalletID  uint  `json:"wallet_id"`
		Available int64 `json:"available"`
	}
	in := balance{WalletID: 7, Available: 150_000}
	require.NoError(t, store.Set(ctx, Key("wallet", "user", 7), in, 0))

	var out balance
	require.NoError(t, store.Get(ctx, Key("wallet", "user", 7), &out))
	assert.Equal(t, in, out)
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	var out string
	err := store.Get(context.Background(), "nope", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestExpiredEntryMisses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", "value", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var out string
	err := store.Get(ctx, "short", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDeleteRemovesKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", 1, 0))
	require.NoError(t, store.Set(ctx, "b", 2, 0))
	require.NoError(t, store.Delete(ctx, "a", "b"))

	var out int
	assert.ErrorIs(t, store.Get(ctx, "a", &out), ErrCacheMiss)
	assert.ErrorIs(t, store.Get(ctx, "b", &out), ErrCacheMiss)
}

func TestSetOverwritesPreviousValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "first", 0))
	require.NoError(t, store.Set(ctx, "k", "second", 0))

	var out string
	require.NoError(t, store.Get(ctx, "k", &out))
	assert.Equal(t, "second", out)
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "wallet:user:42", Key("wallet", "user", 42))
	assert.Equal(t, "user:token_version:7", Key("user", "token_version", uint(7)))
}

func TestCloseIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
