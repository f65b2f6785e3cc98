// Package store defines the transaction store collaborator and its
// implementations. Ownership of a Transaction transfers to the store on
// creation; the wizard and lifecycle only hold transient references.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/irocky-stack/rjbtranz/internal/models"
)

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Status models.Status
	// Currency matches either side of the pair.
	Currency string
	// Search is matched case-insensitively against client name, unique
	// code, format id and phone number.
	Search string
	// Since keeps transactions created at or after the given time.
	Since time.Time
	Limit int
}

// Summary is the console dashboard roll-up.
type Summary struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	Completed    int     `json:"completed"`
	Failed       int     `json:"failed"`
	Cancelled    int     `json:"cancelled"`
	TotalVolume  float64 `json:"total_volume"`
	TotalFees    float64 `json:"total_fees"`
	ReceiptsLeft int     `json:"receipts_unprinted"`
}

// TransactionStore is the outbound store collaborator. Implementations
// must apply UpdateStatus and MarkReceiptPrinted as whole-record updates
// visible to any subsequent reader.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) error
	MarkReceiptPrinted(ctx context.Context, id uuid.UUID) error
	// CompleteWithReceipt sets StatusCompleted and ReceiptPrinted in one
	// atomic update. Used only by the wizard's Preview confirmation.
	CompleteWithReceipt(ctx context.Context, id uuid.UUID) error
	// SetExchangeRate records a manual rate edit, the only other field
	// mutable after creation.
	SetExchangeRate(ctx context.Context, id uuid.UUID, rate float64) error
	Summary(ctx context.Context) (Summary, error)
	// NextSequence hands out the monotonic counter backing reference IDs.
	NextSequence(ctx context.Context) (int64, error)
}

// ListPending is a convenience for the common pending-status query in
// creation order.
func ListPending(ctx context.Context, s TransactionStore) ([]*models.Transaction, error) {
	return s.List(ctx, ListFilter{Status: models.StatusPending})
}
