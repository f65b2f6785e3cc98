// Package notify is the outbound notification collaborator. Delivery is
// fire-and-forget: a failed notification never blocks or rolls back the
// transaction that triggered it.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/models"
	"github.com/irocky-stack/rjbtranz/internal/observability"
)

// Notifier receives transaction events.
type Notifier interface {
	Notify(ctx context.Context, kind models.EventKind, tx *models.Transaction)
}

// LogNotifier emits events as structured logs and counts them. It stands
// in for the push/in-app delivery service, which is outside this system.
type LogNotifier struct{}

// NewLogNotifier creates the default notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, kind models.EventKind, tx *models.Transaction) {
	observability.IncrementNotification(string(kind))
	zap.L().Info("transaction event",
		zap.String("event", string(kind)),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("unique_code", tx.UniqueCode),
		zap.String("status", string(tx.Status)),
		zap.Float64("amount", tx.Amount),
		zap.String("from", tx.FromCurrency),
		zap.String("to", tx.ToCurrency),
	)
}

// Async wraps a notifier so Notify returns immediately; any panic in the
// wrapped notifier is contained and logged.
type Async struct {
	next Notifier
}

// NewAsync decorates a notifier with fire-and-forget delivery.
func NewAsync(next Notifier) *Async {
	return &Async{next: next}
}

func (a *Async) Notify(ctx context.Context, kind models.EventKind, tx *models.Transaction) {
	cp := *tx
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("notifier panicked", zap.Any("panic", rec))
			}
		}()
		a.next.Notify(context.WithoutCancel(ctx), kind, &cp)
	}()
}
