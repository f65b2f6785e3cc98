package domain

// Business defaults. The active values are threaded through config; these
// are the observed production defaults.
const (
	// ReferenceCurrency is the pivot currency most quotes are denominated
	// against, and the sender-side default for outbound transfers.
	ReferenceCurrency = "USD"

	// DefaultFeeRate is the percentage fee charged on a transaction when no
	// manual override is supplied.
	DefaultFeeRate = 0.05

	// RateMarkup is the flat percentage added on top of a resolved rate
	// whenever a rate is offered to a customer, as opposed to internal
	// display. Applied in exactly one place (rates.Resolver.OfferedRate).
	RateMarkup = 0.05

	// BrandPrefix heads every customer-facing unique code.
	BrandPrefix = "RJB"
)
