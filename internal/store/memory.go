package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/irocky-stack/rjbtranz/internal/models"
)

// MemoryStore keeps transactions in creation order in process memory.
// Every mutation replaces the whole stored record, so readers never see a
// partially updated transaction. It backs single-branch deployments and
// all wizard tests.
type MemoryStore struct {
	mu    sync.RWMutex
	order []uuid.UUID
	txs   map[uuid.UUID]models.Transaction
	seq   int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txs: make(map[uuid.UUID]models.Transaction)}
}

func (s *MemoryStore) Create(ctx context.Context, tx *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.txs[tx.ID]; !exists {
		s.order = append(s.order, tx.ID)
	}
	s.txs[tx.ID] = *tx
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := tx
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, id := range s.order {
		tx := s.txs[id]
		if !matches(&tx, filter) {
			continue
		}
		cp := tx
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) error {
	return s.mutate(id, func(tx *models.Transaction) {
		tx.Status = status
	})
}

func (s *MemoryStore) MarkReceiptPrinted(ctx context.Context, id uuid.UUID) error {
	return s.mutate(id, func(tx *models.Transaction) {
		tx.ReceiptPrinted = true
	})
}

func (s *MemoryStore) CompleteWithReceipt(ctx context.Context, id uuid.UUID) error {
	return s.mutate(id, func(tx *models.Transaction) {
		tx.Status = models.StatusCompleted
		tx.ReceiptPrinted = true
	})
}

func (s *MemoryStore) SetExchangeRate(ctx context.Context, id uuid.UUID, rate float64) error {
	return s.mutate(id, func(tx *models.Transaction) {
		tx.ExchangeRate = rate
	})
}

func (s *MemoryStore) Summary(ctx context.Context) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum Summary
	for _, tx := range s.txs {
		sum.Total++
		sum.TotalVolume += tx.Amount
		sum.TotalFees += tx.Fee
		if !tx.ReceiptPrinted {
			sum.ReceiptsLeft++
		}
		switch tx.Status {
		case models.StatusPending:
			sum.Pending++
		case models.StatusCompleted:
			sum.Completed++
		case models.StatusFailed:
			sum.Failed++
		case models.StatusCancelled:
			sum.Cancelled++
		}
	}
	return sum, nil
}

func (s *MemoryStore) NextSequence(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

// mutate applies fn to a copy and writes the whole record back.
func (s *MemoryStore) mutate(id uuid.UUID, fn func(*models.Transaction)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(&tx)
	s.txs[id] = tx
	return nil
}

func matches(tx *models.Transaction, f ListFilter) bool {
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.Currency != "" {
		c := strings.ToUpper(f.Currency)
		if tx.FromCurrency != c && tx.ToCurrency != c {
			return false
		}
	}
	if !f.Since.IsZero() && tx.CreatedAt.Before(f.Since) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(strings.Join([]string{
			tx.ClientName, tx.UniqueCode, tx.FormatID, tx.PhoneNumber,
		}, " "))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
