package rates

import (
	"context"
	"math/rand"
	"time"

	"github.com/irocky-stack/rjbtranz/internal/models"
)

// Feed delivers an already-parsed batch of live quotes. The worker replaces
// the table snapshot wholesale with each batch.
type Feed interface {
	Fetch(ctx context.Context) ([]models.ExchangeRate, error)
}

// MockFeed simulates a market-data provider: static base quotes against
// USD with a small random drift on each fetch, so consumers see the table
// actually changing between reads.
type MockFeed struct {
	// Jitter is the max relative drift per fetch (0.002 = ±0.2%).
	Jitter float64
}

// NewMockFeed creates a feed with the default drift.
func NewMockFeed() *MockFeed {
	return &MockFeed{Jitter: 0.002}
}

var baseQuotes = []models.ExchangeRate{
	{Pair: "USD/GHS", Rate: 12.0, Region: models.RegionAfrica},
	{Pair: "USD/NGN", Rate: 1520.0, Region: models.RegionAfrica},
	{Pair: "USD/KES", Rate: 129.0, Region: models.RegionAfrica},
	{Pair: "USD/ZAR", Rate: 17.8, Region: models.RegionAfrica},
	{Pair: "USD/GBP", Rate: 0.74, Region: models.RegionEurope},
	{Pair: "USD/EUR", Rate: 0.85, Region: models.RegionEurope},
	{Pair: "USD/CAD", Rate: 1.37, Region: models.RegionAmericas},
	{Pair: "USD/INR", Rate: 88.0, Region: models.RegionAsia},
	{Pair: "USD/CNY", Rate: 7.1, Region: models.RegionAsia},
	{Pair: "USD/AED", Rate: 3.67, Region: models.RegionAsia},
	{Pair: "GBP/EUR", Rate: 1.15, Region: models.RegionEurope},
}

// Fetch returns the quote set with fresh timestamps and drifted rates.
func (f *MockFeed) Fetch(ctx context.Context) ([]models.ExchangeRate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]models.ExchangeRate, len(baseQuotes))
	for i, q := range baseQuotes {
		drift := 1 + (rand.Float64()*2-1)*f.Jitter
		next := q
		next.Rate = q.Rate * drift
		next.Change = next.Rate - q.Rate
		next.ChangePercent = (drift - 1) * 100
		next.LastUpdated = now
		out[i] = next
	}
	return out, nil
}
