package sessiontoken

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreTokens(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	token, err := store.Token(ctx, "default")
	require.NoError(t, err)
	assert.Empty(t, token, "unknown account yields empty token, not an error")

	require.NoError(t, store.SetToken(ctx, "default", "tok-123", time.Minute))
	token, err = store.Token(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	// Accounts are isolated.
	other, err := store.Token(ctx, "backup")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStoreSeenURLs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seen, err := store.SeenURL(ctx, "task-1", "https://mp.weixin.qq.com/s/abc")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.MarkSeenURL(ctx, "task-1", "https://mp.weixin.qq.com/s/abc"))

	seen, err = store.SeenURL(ctx, "task-1", "https://mp.weixin.qq.com/s/abc")
	require.NoError(t, err)
	assert.True(t, seen)

	// The dedup set is task-scoped.
	seen, err = store.SeenURL(ctx, "task-2", "https://mp.weixin.qq.com/s/abc")
	require.NoError(t, err)
	assert.False(t, seen)
}
