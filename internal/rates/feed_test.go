package rates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockFeedDriftStaysBounded(t *testing.T) {
	feed := NewMockFeed()
	quotes, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, quotes)

	base := make(map[string]float64, len(baseQuotes))
	for _, q := range baseQuotes {
		base[q.Pair] = q.Rate
	}
	for _, q := range quotes {
		want := base[q.Pair]
		require.InDelta(t, want, q.Rate, want*feed.Jitter*1.01, "pair %s", q.Pair)
		require.False(t, q.LastUpdated.IsZero())
	}
}

func TestMockFeedHonoursContext(t *testing.T) {
	feed := NewMockFeed()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := feed.Fetch(ctx)
	require.Error(t, err)
}
