package rates

import (
	"strings"
	"sync"
	"time"

	"github.com/irocky-stack/rjbtranz/internal/models"
)

// Table is an in-memory index of quoted currency pairs. The feed worker
// replaces the whole snapshot on every refresh; readers take a consistent
// snapshot under the read lock, so a resolve never sees a half-applied feed.
type Table struct {
	mu        sync.RWMutex
	pairs     map[string]models.ExchangeRate
	updatedAt time.Time
}

// NewTable creates an empty rate table.
func NewTable() *Table {
	return &Table{pairs: make(map[string]models.ExchangeRate)}
}

// Replace swaps the table contents for a new feed snapshot wholesale.
func (t *Table) Replace(quotes []models.ExchangeRate) {
	next := make(map[string]models.ExchangeRate, len(quotes))
	for _, q := range quotes {
		if q.Rate <= 0 {
			continue
		}
		next[normalizePair(q.Pair)] = q
	}
	t.mu.Lock()
	t.pairs = next
	t.updatedAt = time.Now()
	t.mu.Unlock()
}

// Lookup returns the quote for a directional "BASE/QUOTE" pair.
func (t *Table) Lookup(base, quote string) (models.ExchangeRate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	q, ok := t.pairs[pairKey(base, quote)]
	return q, ok
}

// All returns a copy of the current snapshot.
func (t *Table) All() []models.ExchangeRate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.ExchangeRate, 0, len(t.pairs))
	for _, q := range t.pairs {
		out = append(out, q)
	}
	return out
}

// UpdatedAt reports when the snapshot was last replaced.
func (t *Table) UpdatedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updatedAt
}

func pairKey(base, quote string) string {
	return strings.ToUpper(strings.TrimSpace(base)) + "/" + strings.ToUpper(strings.TrimSpace(quote))
}

func normalizePair(pair string) string {
	parts := strings.SplitN(pair, "/", 2)
	if len(parts) != 2 {
		return strings.ToUpper(strings.TrimSpace(pair))
	}
	return pairKey(parts[0], parts[1])
}
