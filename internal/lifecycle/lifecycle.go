// Package lifecycle governs post-creation status transitions and the side
// effects each transition triggers.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/models"
	"github.com/irocky-stack/rjbtranz/internal/notify"
	"github.com/irocky-stack/rjbtranz/internal/observability"
	"github.com/irocky-stack/rjbtranz/internal/receipt"
	"github.com/irocky-stack/rjbtranz/internal/store"
)

// ErrInvalidStatusTransition marks a move the transition table forbids.
var ErrInvalidStatusTransition = errors.New("invalid status transition")

// statusTransitions is the closed transition table. Completed, Failed and
// Cancelled are terminal.
var statusTransitions = map[models.Status]map[models.Status]struct{}{
	models.StatusPending: {
		models.StatusCompleted: {},
		models.StatusFailed:    {},
		models.StatusCancelled: {},
	},
	models.StatusCompleted: {},
	models.StatusFailed:    {},
	models.StatusCancelled: {},
}

// CanTransition reports whether current -> next is an allowed move.
func CanTransition(current, next models.Status) bool {
	nextStates, ok := statusTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// Service drives status changes against the store and fans out their side
// effects to the notification and print collaborators.
type Service struct {
	store    store.TransactionStore
	notifier notify.Notifier
	printer  receipt.Printer

	// autoPrint prints a receipt on any transition into Completed, when
	// one has not been printed yet.
	autoPrint bool

	// stagger is the pause between items in CompleteAllPending, so
	// observers of the store see one update at a time.
	stagger time.Duration
}

// NewService builds the lifecycle service.
func NewService(s store.TransactionStore, n notify.Notifier, p receipt.Printer) *Service {
	return &Service{store: s, notifier: n, printer: p, stagger: 400 * time.Millisecond}
}

// WithAutoPrint toggles receipt printing on completion.
func (s *Service) WithAutoPrint(enabled bool) *Service {
	s.autoPrint = enabled
	return s
}

// WithStagger sets the delay between bulk-completion updates.
func (s *Service) WithStagger(d time.Duration) *Service {
	if d >= 0 {
		s.stagger = d
	}
	return s
}

// Transition moves one transaction to the next status. The status update
// is written to the store first; side effects (notification, optional
// auto-print) follow and never roll the status back.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, next models.Status) (*models.Transaction, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("unknown status: %s", next)
	}
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status == next {
		return tx, nil
	}
	if !CanTransition(tx.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tx.Status, next)
	}

	if err := s.store.UpdateStatus(ctx, id, next); err != nil {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}
	observability.IncrementStatusTransition(string(next))

	tx.Status = next
	s.notifier.Notify(ctx, models.EventStatusChanged, tx)

	if next == models.StatusCompleted && s.autoPrint && !tx.ReceiptPrinted {
		if err := s.PrintReceipt(ctx, id, receipt.FormatThermal); err != nil {
			zap.L().Warn("auto-print after completion failed",
				zap.String("transaction_id", id.String()), zap.Error(err))
		}
	}
	return tx, nil
}

// PrintReceipt prints and, only on success, marks the receipt printed.
// On failure the flag stays false and the error is returned; the
// transaction itself is untouched.
func (s *Service) PrintReceipt(ctx context.Context, id uuid.UUID, format receipt.Format) error {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.printer.Print(ctx, tx, format); err != nil {
		observability.IncrementReceiptPrint("failed")
		return fmt.Errorf("print receipt: %w", err)
	}
	observability.IncrementReceiptPrint("success")
	if err := s.store.MarkReceiptPrinted(ctx, id); err != nil {
		return fmt.Errorf("mark receipt printed: %w", err)
	}
	return nil
}

// CompleteAllPending applies Pending -> Completed to every pending
// transaction in original creation order, one at a time: each update is
// committed to the store before the next begins, with a stagger pause in
// between. This is a plain batch, not a transactional one — a failure
// leaves earlier items completed and later ones untouched.
func (s *Service) CompleteAllPending(ctx context.Context) (int, error) {
	pending, err := store.ListPending(ctx, s.store)
	if err != nil {
		return 0, fmt.Errorf("list pending transactions: %w", err)
	}

	completed := 0
	for i, tx := range pending {
		if _, err := s.Transition(ctx, tx.ID, models.StatusCompleted); err != nil {
			return completed, fmt.Errorf("complete %s: %w", tx.ID, err)
		}
		completed++

		if i == len(pending)-1 || s.stagger == 0 {
			continue
		}
		select {
		case <-time.After(s.stagger):
		case <-ctx.Done():
			return completed, ctx.Err()
		}
	}
	observability.SetPendingTransactions(0)
	return completed, nil
}
