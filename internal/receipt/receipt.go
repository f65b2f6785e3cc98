// Package receipt is the print collaborator. A print failure is reported
// to the caller but never rolls back the transaction.
package receipt

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/domain"
	"github.com/irocky-stack/rjbtranz/internal/models"
)

// Format selects the receipt layout.
type Format string

const (
	FormatThermal Format = "thermal"
	FormatA4      Format = "a4"
)

// Printer renders and delivers a receipt for a transaction.
type Printer interface {
	Print(ctx context.Context, tx *models.Transaction, format Format) error
}

// TextPrinter renders plain-text receipts and hands them to a sink.
// The default sink logs the rendered receipt; PDF rendering and physical
// print delivery sit outside this system.
type TextPrinter struct {
	brand string
	sink  func(body string)
}

// NewTextPrinter creates a printer for the given brand header.
func NewTextPrinter(brand string) *TextPrinter {
	if brand == "" {
		brand = domain.BrandPrefix
	}
	return &TextPrinter{
		brand: brand,
		sink: func(body string) {
			zap.L().Info("receipt printed", zap.String("receipt", body))
		},
	}
}

// WithSink redirects rendered receipts, for tests.
func (p *TextPrinter) WithSink(sink func(body string)) *TextPrinter {
	p.sink = sink
	return p
}

func (p *TextPrinter) Print(ctx context.Context, tx *models.Transaction, format Format) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("print receipt: %w", err)
	}
	p.sink(Render(p.brand, tx, format))
	return nil
}

// Render builds the receipt body.
func Render(brand string, tx *models.Transaction, format Format) string {
	width := 32
	if format == FormatA4 {
		width = 64
	}
	rule := strings.Repeat("-", width)

	var b strings.Builder
	fmt.Fprintf(&b, "%s TRANZ\n%s\n", brand, rule)
	fmt.Fprintf(&b, "Ref:      %s\n", tx.FormatID)
	fmt.Fprintf(&b, "Code:     %s\n", tx.UniqueCode)
	fmt.Fprintf(&b, "Client:   %s\n", tx.ClientName)
	fmt.Fprintf(&b, "Date:     %s\n", tx.CreatedAt.Format("02 Jan 2006 15:04"))
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Amount:   %s\n", domain.NewMoney(tx.Amount, tx.FromCurrency))
	fmt.Fprintf(&b, "Rate:     %s\n", domain.FormatAmount(tx.ExchangeRate))
	fmt.Fprintf(&b, "Fee:      %s\n", domain.NewMoney(tx.Fee, tx.FromCurrency))
	fmt.Fprintf(&b, "Receives: %s\n", domain.NewMoney(tx.ReceiverAmount(), tx.ToCurrency))
	fmt.Fprintf(&b, "%s\nStatus:   %s\n", rule, tx.Status)
	return b.String()
}
