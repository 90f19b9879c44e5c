package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHostLimiterDisabled(t *testing.T) {
	l := newHostLimiter(0)
	require.Nil(t, l)
	require.NoError(t, l.Wait(context.Background(), "http://example.com"))
}

func TestHostLimiterSpacesSameHost(t *testing.T) {
	l := newHostLimiter(20)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "http://example.com/a"))
	require.NoError(t, l.Wait(ctx, "http://other.com/a"))
	require.NoError(t, l.Wait(ctx, "http://example.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestHostLimiterHonorsContext(t *testing.T) {
	l := newHostLimiter(0.001)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Wait(ctx, "http://example.com/a"))
	cancel()
	require.Error(t, l.Wait(ctx, "http://example.com/b"))
}
