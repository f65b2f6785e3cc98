package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a transaction. Every transaction is
// created Pending; the other three states are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TransactionType distinguishes outbound sends from receives against a
// sender's already-created pending transfer.
type TransactionType string

const (
	TypeSend    TransactionType = "SEND"
	TypeReceive TransactionType = "RECEIVE"
)

// EventKind labels events emitted to the notification collaborator.
type EventKind string

const (
	EventCreated       EventKind = "CREATED"
	EventStatusChanged EventKind = "STATUS_CHANGED"
)

// Transaction is a single recorded currency-exchange transaction.
// It is constructed once, at wizard confirmation; after creation only
// Status, ReceiptPrinted and ExchangeRate (manual edit) may change.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	ClientName     string          `json:"client_name"`
	ClientEmail    string          `json:"client_email,omitempty"`
	PhoneNumber    string          `json:"phone_number,omitempty"`
	Amount         float64         `json:"amount"`
	FromCurrency   string          `json:"from_currency"`
	ToCurrency     string          `json:"to_currency"`
	ExchangeRate   float64         `json:"exchange_rate"`
	Fee            float64         `json:"fee"`
	Status         Status          `json:"status"`
	Type           TransactionType `json:"transaction_type"`
	UniqueCode     string          `json:"unique_code"`
	FormatID       string          `json:"format_id"`
	ReceiptPrinted bool            `json:"receipt_printed"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ReceiverAmount is the amount the receiver gets at the recorded rate.
func (t *Transaction) ReceiverAmount() float64 {
	return t.Amount * t.ExchangeRate
}

// ExchangeRate is one quoted currency pair. Pair is a directional
// "BASE/QUOTE" string; the inverse pair may or may not be quoted.
type ExchangeRate struct {
	Pair          string    `json:"pair"`
	Rate          float64   `json:"rate"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	LastUpdated   time.Time `json:"last_updated"`
	Region        Region    `json:"region"`
}

// Region groups quoted pairs by market region.
type Region string

const (
	RegionAfrica   Region = "AFRICA"
	RegionAmericas Region = "AMERICAS"
	RegionEurope   Region = "EUROPE"
	RegionAsia     Region = "ASIA"
)

// ReceiverInfo is the receiver-side form data collected by the wizard.
// Currency is derived from the selected country, never entered directly.
type ReceiverInfo struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Country     string `json:"country"`
	Currency    string `json:"currency"`
}

var (
	// ErrValidation marks recoverable user-input errors that block a wizard
	// step transition. Use ValidationError to attach the field.
	ErrValidation = errors.New("validation failed")

	// ErrCreationFailed marks a transient failure of a commit action; the
	// wizard stays on its current step and the action may be retried.
	ErrCreationFailed = errors.New("transaction creation failed")

	// ErrCommitInFlight rejects re-entrant commit attempts while a previous
	// commit on the same session has not resolved.
	ErrCommitInFlight = errors.New("commit already in progress")

	// ErrNotFound is returned by stores for unknown transaction IDs.
	ErrNotFound = errors.New("transaction not found")
)

// ValidationError wraps ErrValidation with the offending field.
func ValidationError(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, msg)
}
