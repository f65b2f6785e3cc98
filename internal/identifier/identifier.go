// Package identifier produces transaction reference codes.
package identifier

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/irocky-stack/rjbtranz/internal/domain"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 8

// SequenceSource hands out monotonic transaction sequence numbers. The
// transaction store owns the counter so concurrent sessions cannot mint
// the same reference ID.
type SequenceSource interface {
	NextSequence(ctx context.Context) (int64, error)
}

// Generator mints customer-facing transaction codes.
type Generator struct {
	prefix string
	seq    SequenceSource
	now    func() time.Time
}

// NewGenerator builds a generator using the brand prefix and the store's
// sequence counter.
func NewGenerator(prefix string, seq SequenceSource) *Generator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = domain.BrandPrefix
	}
	return &Generator{prefix: prefix, seq: seq, now: time.Now}
}

// WithClock overrides the wall clock, for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// UniqueCode returns the short random display code: the brand prefix
// followed by 8 characters drawn uniformly from A-Z0-9. It is a display
// code, not a primary key; collision handling belongs to the store.
func (g *Generator) UniqueCode() string {
	var b strings.Builder
	b.Grow(len(g.prefix) + codeLength)
	b.WriteString(g.prefix)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// ReferenceID returns the human-decodable composite code:
// {currency}-{last 3 phone digits}-{DDMMHHMMSS}-{5-digit sequence}.
// A reader can decode "made today around 14:32, transaction #00042".
func (g *Generator) ReferenceID(ctx context.Context, currency, phoneNumber string) (string, error) {
	seq, err := g.seq.NextSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("next transaction sequence: %w", err)
	}
	ts := g.now().Format("0201150405")
	return fmt.Sprintf("%s-%s-%s-%05d",
		strings.ToUpper(strings.TrimSpace(currency)),
		lastPhoneDigits(phoneNumber),
		ts,
		seq,
	), nil
}

// lastPhoneDigits keeps the last three digits of the phone number,
// zero-padded on the left, "000" when the number is absent.
func lastPhoneDigits(phone string) string {
	var digits []rune
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) > 3 {
		digits = digits[len(digits)-3:]
	}
	return fmt.Sprintf("%03s", string(digits))
}
