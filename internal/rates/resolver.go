package rates

import (
	"strings"

	"github.com/irocky-stack/rjbtranz/internal/domain"
)

// Resolver answers rate queries for any two currency codes, independent of
// quote direction or currency set.
//
// Resolve never fails: when no direct, inverse or cross rate can be
// computed it degrades to the caller-supplied viewing-context rate. That
// deliberately favors availability over correctness; callers quoting a
// customer must treat the answer as best-effort, not authoritative.
type Resolver struct {
	table *Table

	// pivot is the reference currency cross-rates are computed through.
	pivot string

	// markup is the flat percentage added when a rate is offered to a
	// customer. Applied only in OfferedRate, nowhere else.
	markup float64
}

// NewResolver builds a resolver over a table. An empty pivot and a
// negative markup fall back to the business defaults; an explicit zero
// markup is honored.
func NewResolver(table *Table, pivot string, markup float64) *Resolver {
	if pivot == "" {
		pivot = domain.ReferenceCurrency
	}
	if markup < 0 {
		markup = domain.RateMarkup
	}
	return &Resolver{table: table, pivot: strings.ToUpper(pivot), markup: markup}
}

// Resolve returns a usable rate for converting from -> to. Resolution
// order, first match wins:
//
//  1. identical currencies: 1
//  2. direct quote "from/to"
//  3. inverse quote "to/from", inverted
//  4. cross-rate through the pivot currency
//  5. viewedRate, the rate of the pair context the caller is currently
//     viewing (1 when the caller has no context)
func (r *Resolver) Resolve(from, to string, viewedRate float64) float64 {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == to {
		return 1
	}
	if q, ok := r.table.Lookup(from, to); ok {
		return q.Rate
	}
	if q, ok := r.table.Lookup(to, from); ok {
		return 1 / q.Rate
	}
	if cross, ok := r.crossRate(from, to); ok {
		return cross
	}
	if viewedRate > 0 {
		return viewedRate
	}
	return 1
}

// OfferedRate is the customer-facing rate: Resolve plus the flat markup.
func (r *Resolver) OfferedRate(from, to string, viewedRate float64) float64 {
	return r.Resolve(from, to, viewedRate) * (1 + r.markup)
}

// Pivot returns the resolver's reference currency.
func (r *Resolver) Pivot() string {
	return r.pivot
}

// crossRate computes from->to through the pivot when both legs are quoted
// in either direction. Each leg is normalized to pivot->currency first;
// the cross rate is then legTo / legFrom.
func (r *Resolver) crossRate(from, to string) (float64, bool) {
	legFrom, ok := r.pivotLeg(from)
	if !ok {
		return 0, false
	}
	legTo, ok := r.pivotLeg(to)
	if !ok {
		return 0, false
	}
	if legFrom == 0 {
		return 0, false
	}
	return legTo / legFrom, true
}

// pivotLeg returns the pivot->currency rate, accepting quotes in either
// direction.
func (r *Resolver) pivotLeg(currency string) (float64, bool) {
	if currency == r.pivot {
		return 1, true
	}
	if q, ok := r.table.Lookup(r.pivot, currency); ok {
		return q.Rate, true
	}
	if q, ok := r.table.Lookup(currency, r.pivot); ok && q.Rate != 0 {
		return 1 / q.Rate, true
	}
	return 0, false
}
