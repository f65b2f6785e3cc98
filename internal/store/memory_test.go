package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irocky-stack/rjbtranz/internal/models"
)

func seedTx(t *testing.T, s *MemoryStore, mutate func(*models.Transaction)) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		ID:           uuid.New(),
		ClientName:   "Akosua Mensah",
		PhoneNumber:  "+233245550182",
		Amount:       1000,
		FromCurrency: "USD",
		ToCurrency:   "GHS",
		ExchangeRate: 12.6,
		Fee:          50,
		Status:       models.StatusPending,
		Type:         models.TypeSend,
		UniqueCode:   "RJBA1B2C3D4",
		FormatID:     "USD-182-0703143209-00001",
		CreatedAt:    time.Now(),
	}
	if mutate != nil {
		mutate(tx)
	}
	require.NoError(t, s.Create(context.Background(), tx))
	return tx
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	tx := seedTx(t, s, nil)

	got, err := s.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ClientName, got.ClientName)

	// The store hands out copies, not aliases.
	got.ClientName = "changed"
	again, err := s.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Akosua Mensah", again.ClientName)
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStoreListPreservesCreationOrder(t *testing.T) {
	s := NewMemoryStore()
	first := seedTx(t, s, nil)
	second := seedTx(t, s, nil)
	third := seedTx(t, s, nil)

	txs, err := s.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, first.ID, txs[0].ID)
	assert.Equal(t, second.ID, txs[1].ID)
	assert.Equal(t, third.ID, txs[2].ID)
}

func TestMemoryStoreListFilters(t *testing.T) {
	s := NewMemoryStore()
	pending := seedTx(t, s, nil)
	completed := seedTx(t, s, func(tx *models.Transaction) {
		tx.Status = models.StatusCompleted
		tx.ClientName = "Kwame Boateng"
		tx.FromCurrency = "GHS"
		tx.ToCurrency = "USD"
	})
	old := seedTx(t, s, func(tx *models.Transaction) {
		tx.CreatedAt = time.Now().Add(-48 * time.Hour)
	})

	t.Run("by_status", func(t *testing.T) {
		txs, err := s.List(context.Background(), ListFilter{Status: models.StatusCompleted})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, completed.ID, txs[0].ID)
	})

	t.Run("by_currency_either_side", func(t *testing.T) {
		txs, err := s.List(context.Background(), ListFilter{Currency: "ghs"})
		require.NoError(t, err)
		assert.Len(t, txs, 3, "GHS appears on one side of every seeded pair")
	})

	t.Run("by_search", func(t *testing.T) {
		txs, err := s.List(context.Background(), ListFilter{Search: "kwame"})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, completed.ID, txs[0].ID)
	})

	t.Run("by_since", func(t *testing.T) {
		txs, err := s.List(context.Background(), ListFilter{Since: time.Now().Add(-time.Hour)})
		require.NoError(t, err)
		require.Len(t, txs, 2)
		for _, tx := range txs {
			assert.NotEqual(t, old.ID, tx.ID)
		}
	})

	t.Run("limit", func(t *testing.T) {
		txs, err := s.List(context.Background(), ListFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, pending.ID, txs[0].ID)
	})
}

func TestMemoryStoreUpdateStatus(t *testing.T) {
	s := NewMemoryStore()
	tx := seedTx(t, s, nil)

	require.NoError(t, s.UpdateStatus(context.Background(), tx.ID, models.StatusCancelled))
	got, err := s.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	err = s.UpdateStatus(context.Background(), uuid.New(), models.StatusCancelled)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStoreCompleteWithReceipt(t *testing.T) {
	s := NewMemoryStore()
	tx := seedTx(t, s, nil)

	require.NoError(t, s.CompleteWithReceipt(context.Background(), tx.ID))
	got, err := s.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.True(t, got.ReceiptPrinted)
}

func TestMemoryStoreSetExchangeRate(t *testing.T) {
	s := NewMemoryStore()
	tx := seedTx(t, s, nil)

	require.NoError(t, s.SetExchangeRate(context.Background(), tx.ID, 11.4))
	got, err := s.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 11.4, got.ExchangeRate)
}

func TestMemoryStoreSummary(t *testing.T) {
	s := NewMemoryStore()
	seedTx(t, s, nil)
	seedTx(t, s, func(tx *models.Transaction) {
		tx.Status = models.StatusCompleted
		tx.ReceiptPrinted = true
		tx.Amount = 500
		tx.Fee = 25
	})
	seedTx(t, s, func(tx *models.Transaction) { tx.Status = models.StatusFailed })

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 0, sum.Cancelled)
	assert.InDelta(t, 2500.0, sum.TotalVolume, 1e-9)
	assert.InDelta(t, 125.0, sum.TotalFees, 1e-9)
	assert.Equal(t, 2, sum.ReceiptsLeft)
}

func TestMemoryStoreNextSequence(t *testing.T) {
	s := NewMemoryStore()
	for want := int64(1); want <= 3; want++ {
		got, err := s.NextSequence(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
