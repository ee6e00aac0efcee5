package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(0)

	require.NoError(t, c.SetBytes(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.SetBytes(ctx, "b", []byte("2"), time.Millisecond))

	b, ok, err := c.GetBytes(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), b)

	time.Sleep(5 * time.Millisecond)
	_, ok, _ = c.GetBytes(ctx, "b")
	assert.False(t, ok)

	_, ok, _ = c.GetBytes(ctx, "missing")
	assert.False(t, ok)
}

func TestTTLCacheBounded(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(2)
	_ = c.SetBytes(ctx, "a", []byte("1"), time.Nanosecond)
	_ = c.SetBytes(ctx, "b", []byte("2"), 0)
	time.Sleep(time.Millisecond)
	_ = c.SetBytes(ctx, "c", []byte("3"), 0)
	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.GetBytes(ctx, "b")
	assert.True(t, ok)
}

func TestProjectionKey(t *testing.T) {
	assert.Equal(t, "ev:run-1:AAPL:weights:7:p10", ProjectionKey("run-1", "AAPL", "weights", 7, "p10"))
	assert.NotEqual(t,
		ProjectionKey("run-1", "AAPL", "weights", 7, ""),
		ProjectionKey("run-1", "AAPL", "weights", 8, ""))
}

func TestTTLCachePurgeRun(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(0)
	_ = c.SetBytes(ctx, ProjectionKey("old", "AAPL", "prediction", 1, ""), []byte("x"), 0)
	_ = c.SetBytes(ctx, ProjectionKey("old", "MSFT", "weights", 3, "p10"), []byte("y"), 0)
	_ = c.SetBytes(ctx, ProjectionKey("new", "AAPL", "prediction", 1, ""), []byte("z"), 0)

	n, err := c.PurgeRun(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Len())

	n, _ = c.PurgeRun(ctx, "old")
	assert.Zero(t, n)
}
