package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irocky-stack/rjbtranz/internal/models"
	"github.com/irocky-stack/rjbtranz/internal/rates"
)

type scriptedFeed struct {
	calls   atomic.Int64
	batches [][]models.ExchangeRate
	err     error
}

func (f *scriptedFeed) Fetch(ctx context.Context) ([]models.ExchangeRate, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	idx := int(n) - 1
	if idx >= len(f.batches) {
		idx = len(f.batches) - 1
	}
	return f.batches[idx], nil
}

func TestRateWorkerRefreshesImmediately(t *testing.T) {
	feed := &scriptedFeed{batches: [][]models.ExchangeRate{
		{{Pair: "USD/GHS", Rate: 12.0}},
	}}
	table := rates.NewTable()
	w := NewRateWorker(feed, table).WithInterval(time.Hour)

	stop := w.Run(context.Background())
	defer stop()

	require.Eventually(t, func() bool {
		_, ok := table.Lookup("USD", "GHS")
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestRateWorkerKeepsSnapshotOnFeedFailure(t *testing.T) {
	table := rates.NewTable()
	table.Replace([]models.ExchangeRate{{Pair: "USD/GHS", Rate: 12.0}})

	feed := &scriptedFeed{err: errors.New("feed down")}
	w := NewRateWorker(feed, table).WithInterval(10 * time.Millisecond)

	stop := w.Run(context.Background())
	require.Eventually(t, func() bool { return feed.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	stop()

	q, ok := table.Lookup("USD", "GHS")
	require.True(t, ok, "failed fetch must not clear the table")
	assert.Equal(t, 12.0, q.Rate)
}

func TestRateWorkerStopIsIdempotent(t *testing.T) {
	feed := &scriptedFeed{batches: [][]models.ExchangeRate{{}}}
	w := NewRateWorker(feed, rates.NewTable()).WithInterval(time.Hour)
	stop := w.Run(context.Background())
	stop()
	stop()
	w.Stop()
}
