package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/observability"
	"github.com/irocky-stack/rjbtranz/internal/rates"
)

// RateWorker refreshes the rate table from the feed at a fixed interval,
// replacing the snapshot wholesale. A failed fetch keeps the previous
// snapshot in place.
type RateWorker struct {
	feed     rates.Feed
	table    *rates.Table
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateWorker constructs a worker with a default 45 second interval.
func NewRateWorker(feed rates.Feed, table *rates.Table) *RateWorker {
	return &RateWorker{
		feed:     feed,
		table:    table,
		interval: 45 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the refresh interval.
func (w *RateWorker) WithInterval(interval time.Duration) *RateWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and refreshes at the configured interval.
func (w *RateWorker) Start(ctx context.Context) {
	zap.L().Info("rate worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Refresh once immediately so the table is never empty at startup.
	w.refreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("rate worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("rate worker stop signal received")
			return
		case <-ticker.C:
			w.refreshOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *RateWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *RateWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *RateWorker) refreshOnce(ctx context.Context) {
	quotes, err := w.feed.Fetch(ctx)
	if err != nil {
		observability.IncrementRateRefresh("failed")
		zap.L().Error("rate feed fetch failed", zap.Error(err))
		return
	}
	w.table.Replace(quotes)
	observability.IncrementRateRefresh("success")
	zap.L().Debug("rate table refreshed", zap.Int("pairs", len(quotes)))
}
