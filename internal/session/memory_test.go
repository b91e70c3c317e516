package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendLifecycle(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	_, err := b.Read(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Create(ctx, "sid-1", "user-1"))
	userID, err := b.Read(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	require.NoError(t, b.Update(ctx, "sid-1", "user-2"))
	userID, err = b.Read(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)

	require.NoError(t, b.Delete(ctx, "sid-1"))
	_, err = b.Read(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Delete is idempotent.
	assert.NoError(t, b.Delete(ctx, "sid-1"))
}

func TestMemoryBackendDeleteForUser(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	require.NoError(t, b.Create(ctx, "sid-1", "user-1"))
	require.NoError(t, b.DeleteForUser(ctx, "user-1"))

	_, err := b.Read(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Idempotent, including for users that never had a session.
	assert.NoError(t, b.DeleteForUser(ctx, "user-1"))
	assert.NoError(t, b.DeleteForUser(ctx, "unknown"))
}

func TestMemoryBackendSingleSessionPerUser(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	require.NoError(t, b.Create(ctx, "sid-1", "user-1"))
	require.NoError(t, b.Create(ctx, "sid-2", "user-1"))

	_, err := b.Read(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNotFound)

	userID, err := b.Read(ctx, "sid-2")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestNewIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewID()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, "kohaku:"))
		assert.False(t, seen[id], "ids must not repeat")
		seen[id] = true
	}
}
