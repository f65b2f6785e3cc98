// Package wizard implements the transaction-creation finite-state machine:
// it sequences data collection across steps, holds in-progress form state,
// and emits a finalized Transaction only from a terminal confirmation step.
package wizard

import (
	"github.com/irocky-stack/rjbtranz/internal/models"
)

// Step is one screen of the commitment workflow.
type Step string

const (
	StepOverview         Step = "OVERVIEW"
	StepPendingSelection Step = "PENDING_SELECTION"
	StepTransactionForm  Step = "TRANSACTION_FORM"
	StepReceiverInfo     Step = "RECEIVER_INFO"
	StepPreview          Step = "PREVIEW"
	StepComplete         Step = "COMPLETE"
)

// Action is a user input that may move the wizard between steps.
type Action string

const (
	ActionStartSend         Action = "START_SEND"
	ActionStartReceive      Action = "START_RECEIVE"
	ActionSelectPending     Action = "SELECT_PENDING"
	ActionSaveOnly          Action = "SAVE_ONLY"
	ActionSaveAndContinue   Action = "SAVE_AND_CONTINUE"
	ActionCreateTransaction Action = "CREATE_TRANSACTION"
	ActionSubmitReceiver    Action = "SUBMIT_RECEIVER"
	ActionConfirm           Action = "CONFIRM"
	ActionBack              Action = "BACK"
	ActionCancel            Action = "CANCEL"
)

// FormInput is the sender-side form. Amount arrives as entered text and is
// validated at commit time. CustomFee and CustomRate are manual overrides;
// a set CustomFee always wins over the computed fee, including zero.
type FormInput struct {
	ClientName  string   `json:"client_name"`
	ClientEmail string   `json:"client_email,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Amount      string   `json:"amount"`
	CustomFee   *float64 `json:"custom_fee,omitempty"`
	CustomRate  *float64 `json:"custom_rate,omitempty"`
}

// State is the transient, wizard-owned working state of one
// transaction-creation attempt. It never outlives the attempt: starting a
// new attempt resets it fully, and cancellation discards it unconditionally.
type State struct {
	Step Step                   `json:"step"`
	Type models.TransactionType `json:"transaction_type"`

	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`

	Form     FormInput           `json:"form"`
	Receiver models.ReceiverInfo `json:"receiver"`

	// SelectedPending is the counter-transaction being received against,
	// set only on the receive path.
	SelectedPending *models.Transaction `json:"selected_pending,omitempty"`

	// Created is the transaction emitted by a save action on this attempt.
	// The Preview confirmation mutates this transaction in the store
	// instead of creating a new one.
	Created *models.Transaction `json:"created,omitempty"`
}

// Summary is the live quote shown alongside the form.
type Summary struct {
	OfferedRate    float64 `json:"offered_rate"`
	Fee            float64 `json:"fee"`
	ReceiverAmount float64 `json:"receiver_amount"`
	FromCurrency   string  `json:"from_currency"`
	ToCurrency     string  `json:"to_currency"`
}
