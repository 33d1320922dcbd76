package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "session:1", map[string]any{"user_id": 42}, time.Minute))

	var got map[string]any
	hit, err := s.Get(ctx, "session:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.EqualValues(t, 42, got["user_id"])

	require.NoError(t, s.Del(ctx, "session:1"))
	hit, err = s.Get(ctx, "session:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", "v", time.Second))
	now = now.Add(2 * time.Second)

	var v string
	hit, err := s.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, s.Len())
}
