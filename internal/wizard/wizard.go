package wizard

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/domain"
	"github.com/irocky-stack/rjbtranz/internal/fees"
	"github.com/irocky-stack/rjbtranz/internal/identifier"
	"github.com/irocky-stack/rjbtranz/internal/models"
	"github.com/irocky-stack/rjbtranz/internal/notify"
	"github.com/irocky-stack/rjbtranz/internal/observability"
	"github.com/irocky-stack/rjbtranz/internal/rates"
	"github.com/irocky-stack/rjbtranz/internal/store"
)

// Config carries the business configuration the wizard needs, threaded in
// explicitly at construction instead of read from ambient state.
type Config struct {
	ReferenceCurrency string
	// ViewedCountry is the country panel the operator is working in; it
	// supplies the non-reference side of the default currency pair.
	ViewedCountry string
	// FeeRate is the active system-wide default fee percentage.
	FeeRate float64
	// PendingWindow bounds how old a pending counter-transaction may be to
	// appear in the receive flow's selection list.
	PendingWindow time.Duration
	// SecuringDelay is the simulated "securing connection" pause on the
	// direct create path.
	SecuringDelay time.Duration
}

// Wizard drives one operator's transaction-creation workflow. All state is
// owned by the wizard instance and discarded on completion or cancellation.
type Wizard struct {
	mu    sync.Mutex
	state State
	// committing guards against double submission while a commit action's
	// simulated network delay is in flight.
	committing bool
	// attempt increments on every reset so a commit that outlives a
	// cancelled attempt does not resurrect its state.
	attempt int

	store    store.TransactionStore
	resolver *rates.Resolver
	fees     *fees.Calculator
	ids      *identifier.Generator
	notifier notify.Notifier

	cfg            Config
	viewedCurrency string
}

// New builds a wizard over its collaborators.
func New(cfg Config, s store.TransactionStore, r *rates.Resolver, f *fees.Calculator, g *identifier.Generator, n notify.Notifier) *Wizard {
	if cfg.ReferenceCurrency == "" {
		cfg.ReferenceCurrency = domain.ReferenceCurrency
	}
	// A negative fee rate means unconfigured; an explicit zero is a valid
	// business setting and passes through.
	if cfg.FeeRate < 0 {
		cfg.FeeRate = domain.DefaultFeeRate
	}
	if cfg.PendingWindow <= 0 {
		cfg.PendingWindow = 72 * time.Hour
	}
	viewed, ok := domain.CurrencyForCountry(cfg.ViewedCountry)
	if !ok {
		viewed = "GHS"
	}
	w := &Wizard{
		store:          s,
		resolver:       r,
		fees:           f,
		ids:            g,
		notifier:       n,
		cfg:            cfg,
		viewedCurrency: viewed,
	}
	w.reset()
	return w
}

// Snapshot returns a copy of the current state.
func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Step
}

// StartSend begins a fresh outbound transaction: sender side defaults to
// the reference currency, receiver side to the viewed country's currency.
func (w *Wizard) StartSend() error {
	return w.start(ActionStartSend, models.TypeSend, w.cfg.ReferenceCurrency, w.viewedCurrency)
}

// StartReceive begins a receive against a pending counter-transaction,
// with the currency pair swapped.
func (w *Wizard) StartReceive() error {
	return w.start(ActionStartReceive, models.TypeReceive, w.viewedCurrency, w.cfg.ReferenceCurrency)
}

func (w *Wizard) start(action Action, txType models.TransactionType, from, to string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next, err := Transition(w.state.Step, action, txType)
	if err != nil {
		observability.IncrementWizardAction(string(action), "rejected")
		return err
	}
	w.resetLocked()
	w.state.Step = next
	w.state.Type = txType
	w.state.FromCurrency = from
	w.state.ToCurrency = to
	observability.IncrementWizardAction(string(action), "ok")
	return nil
}

// PendingOptions lists the pending counter-transactions the receive flow
// may settle against: Pending status, matching currency, inside the
// configured time window, optionally narrowed by free-text search.
func (w *Wizard) PendingOptions(ctx context.Context, search string) ([]*models.Transaction, error) {
	w.mu.Lock()
	currency := w.state.FromCurrency
	w.mu.Unlock()
	return w.store.List(ctx, store.ListFilter{
		Status:   models.StatusPending,
		Currency: currency,
		Search:   search,
		Since:    time.Now().Add(-w.cfg.PendingWindow),
	})
}

// SelectPending picks the counter-transaction to receive against.
func (w *Wizard) SelectPending(ctx context.Context, id uuid.UUID) error {
	tx, err := w.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if tx.Status != models.StatusPending {
		return models.ValidationError("pending_transaction", "transaction is no longer pending")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	next, err := Transition(w.state.Step, ActionSelectPending, w.state.Type)
	if err != nil {
		observability.IncrementWizardAction(string(ActionSelectPending), "rejected")
		return err
	}
	w.state.SelectedPending = tx
	w.state.Step = next
	observability.IncrementWizardAction(string(ActionSelectPending), "ok")
	return nil
}

// SetForm stores the sender form fields without moving steps. Validation
// happens at commit time.
func (w *Wizard) SetForm(form FormInput) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Form = form
}

// Quote is the live summary beside the form: offered rate, fee, and the
// amount the receiver gets, recomputed from the current form state.
func (w *Wizard) Quote() Summary {
	w.mu.Lock()
	st := w.state
	w.mu.Unlock()

	amount, _ := parseAmount(st.Form.Amount)
	rate := w.offeredRate(st)
	return Summary{
		OfferedRate:    rate,
		Fee:            w.fees.Fee(amount, st.FromCurrency, st.ToCurrency, st.Form.CustomFee, w.cfg.FeeRate),
		ReceiverAmount: domain.ApplyRate(amount, rate),
		FromCurrency:   st.FromCurrency,
		ToCurrency:     st.ToCurrency,
	}
}

// SaveOnly creates the transaction immediately with status Pending and
// exits to Overview.
func (w *Wizard) SaveOnly(ctx context.Context) (*models.Transaction, error) {
	return w.commit(ctx, ActionSaveOnly)
}

// SaveAndContinue creates the transaction, then advances to receiver
// collection on the send path; a receive returns directly to Overview.
func (w *Wizard) SaveAndContinue(ctx context.Context) (*models.Transaction, error) {
	return w.commit(ctx, ActionSaveAndContinue)
}

// CreateTransaction is the direct commit path: same validation and
// fee/rate computation as the save actions, preceded by a simulated
// "securing connection" delay, after which the wizard auto-closes.
// Once started the creation is not cancellable — dismissing the wizard
// mid-flight still delivers the transaction to the store.
func (w *Wizard) CreateTransaction(ctx context.Context) (*models.Transaction, error) {
	return w.commit(ctx, ActionCreateTransaction)
}

func (w *Wizard) commit(ctx context.Context, action Action) (*models.Transaction, error) {
	tx, attempt, err := w.stageCommit(ctx, action)
	if err != nil {
		observability.IncrementWizardAction(string(action), "rejected")
		return nil, err
	}

	defer func() {
		w.mu.Lock()
		w.committing = false
		w.mu.Unlock()
	}()

	// Creation is detached from the caller's lifetime: a dismissed wizard
	// or dropped request must not abort a commit already under way.
	detached := context.WithoutCancel(ctx)

	if action == ActionCreateTransaction && w.cfg.SecuringDelay > 0 {
		time.Sleep(w.cfg.SecuringDelay)
	}

	if err := w.store.Create(detached, tx); err != nil {
		observability.IncrementWizardAction(string(action), "failed")
		zap.L().Error("transaction creation failed", zap.Error(err),
			zap.String("action", string(action)))
		return nil, fmt.Errorf("%w: %v", models.ErrCreationFailed, err)
	}
	observability.IncrementTransactionCreated(string(tx.Type), string(action))
	w.notifier.Notify(detached, models.EventCreated, tx)

	w.mu.Lock()
	if w.attempt == attempt {
		next, _ := Transition(w.state.Step, action, w.state.Type)
		w.state.Step = next
		w.state.Created = tx
		if next == StepOverview {
			// The attempt is over; drop the working state but keep the
			// emitted transaction owned by the store.
			w.resetLocked()
		}
	}
	w.mu.Unlock()

	observability.IncrementWizardAction(string(action), "ok")
	return tx, nil
}

// stageCommit validates the step transition and assembles the transaction
// under the lock, marking the wizard committing on success. The lock is
// released with defer so a failure inside validation cannot leave the
// session wedged.
func (w *Wizard) stageCommit(ctx context.Context, action Action) (*models.Transaction, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.committing {
		return nil, 0, models.ErrCommitInFlight
	}
	st := w.state
	if _, err := Transition(st.Step, action, st.Type); err != nil {
		return nil, 0, err
	}
	tx, err := w.buildTransaction(ctx, st)
	if err != nil {
		return nil, 0, err
	}
	w.committing = true
	return tx, w.attempt, nil
}

// buildTransaction validates the form and assembles the Transaction to
// emit. Runs the same math on every commit path.
func (w *Wizard) buildTransaction(ctx context.Context, st State) (*models.Transaction, error) {
	if strings.TrimSpace(st.Form.ClientName) == "" {
		return nil, models.ValidationError("full_name", "is required")
	}
	amount, err := parseAmount(st.Form.Amount)
	if err != nil {
		return nil, err
	}
	if st.Form.CustomFee != nil && *st.Form.CustomFee < 0 {
		return nil, models.ValidationError("custom_fee", "must be zero or greater")
	}
	if st.Type == models.TypeReceive && st.SelectedPending == nil {
		return nil, models.ValidationError("pending_transaction", "no counter-transaction selected")
	}

	rate := w.offeredRate(st)
	fee := w.fees.Fee(amount, st.FromCurrency, st.ToCurrency, st.Form.CustomFee, w.cfg.FeeRate)

	formatID, err := w.ids.ReferenceID(ctx, st.FromCurrency, st.Form.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCreationFailed, err)
	}

	return &models.Transaction{
		ID:           uuid.New(),
		ClientName:   strings.TrimSpace(st.Form.ClientName),
		ClientEmail:  strings.TrimSpace(st.Form.ClientEmail),
		PhoneNumber:  strings.TrimSpace(st.Form.PhoneNumber),
		Amount:       amount,
		FromCurrency: st.FromCurrency,
		ToCurrency:   st.ToCurrency,
		ExchangeRate: rate,
		Fee:          fee,
		Status:       models.StatusPending,
		Type:         st.Type,
		UniqueCode:   w.ids.UniqueCode(),
		FormatID:     formatID,
		CreatedAt:    time.Now(),
	}, nil
}

// SubmitReceiver validates the receiver form and advances to Preview.
// Currency derives from the selected country.
func (w *Wizard) SubmitReceiver(info models.ReceiverInfo) error {
	if strings.TrimSpace(info.FullName) == "" {
		return models.ValidationError("receiver.full_name", "is required")
	}
	currency, ok := domain.CurrencyForCountry(info.Country)
	if !ok {
		return models.ValidationError("receiver.country", "unknown country")
	}
	info.Currency = currency

	w.mu.Lock()
	defer w.mu.Unlock()
	next, err := Transition(w.state.Step, ActionSubmitReceiver, w.state.Type)
	if err != nil {
		observability.IncrementWizardAction(string(ActionSubmitReceiver), "rejected")
		return err
	}
	w.state.Receiver = info
	w.state.Step = next
	observability.IncrementWizardAction(string(ActionSubmitReceiver), "ok")
	return nil
}

// ConfirmPreview finalizes the attempt: the previously created transaction
// gets Completed status and a printed receipt in one atomic store update.
// This is the only place the wizard mutates an existing transaction.
func (w *Wizard) ConfirmPreview(ctx context.Context) (*models.Transaction, error) {
	w.mu.Lock()
	if w.committing {
		w.mu.Unlock()
		return nil, models.ErrCommitInFlight
	}
	next, err := Transition(w.state.Step, ActionConfirm, w.state.Type)
	if err != nil {
		w.mu.Unlock()
		observability.IncrementWizardAction(string(ActionConfirm), "rejected")
		return nil, err
	}
	created := w.state.Created
	w.committing = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.committing = false
		w.mu.Unlock()
	}()

	if created == nil {
		observability.IncrementWizardAction(string(ActionConfirm), "rejected")
		return nil, models.ValidationError("transaction", "nothing to finalize")
	}

	detached := context.WithoutCancel(ctx)
	if err := w.store.CompleteWithReceipt(detached, created.ID); err != nil {
		observability.IncrementWizardAction(string(ActionConfirm), "failed")
		return nil, fmt.Errorf("finalize transaction: %w", err)
	}
	finalized := *created
	finalized.Status = models.StatusCompleted
	finalized.ReceiptPrinted = true
	w.notifier.Notify(detached, models.EventStatusChanged, &finalized)

	w.mu.Lock()
	w.state.Step = next
	w.state.Created = &finalized
	w.mu.Unlock()
	observability.IncrementWizardAction(string(ActionConfirm), "ok")
	return &finalized, nil
}

// Back moves exactly one step backwards.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next, err := Transition(w.state.Step, ActionBack, w.state.Type)
	if err != nil {
		observability.IncrementWizardAction(string(ActionBack), "rejected")
		return err
	}
	w.state.Step = next
	observability.IncrementWizardAction(string(ActionBack), "ok")
	return nil
}

// Cancel discards all wizard state unconditionally and returns to
// Overview. No partial transaction is ever persisted by cancellation; a
// commit already in flight still completes against the store.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	observability.IncrementWizardAction(string(ActionCancel), "ok")
}

func (w *Wizard) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *Wizard) resetLocked() {
	w.attempt++
	w.state = State{Step: StepOverview}
}

// offeredRate is the customer-facing rate for the attempt: a manual rate
// override wins; otherwise resolve with markup, falling back to the viewed
// pair's context rate when no quote path exists.
func (w *Wizard) offeredRate(st State) float64 {
	if st.Form.CustomRate != nil && *st.Form.CustomRate > 0 {
		return *st.Form.CustomRate
	}
	viewed := w.resolver.Resolve(w.cfg.ReferenceCurrency, w.viewedCurrency, 1)
	return w.resolver.OfferedRate(st.FromCurrency, st.ToCurrency, viewed)
}

func parseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, models.ValidationError("amount", "is required")
	}
	amount, err := strconv.ParseFloat(raw, 64)
	// ParseFloat accepts "Inf" and "NaN" literals; neither is an amount.
	if err != nil || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return 0, models.ValidationError("amount", "must be a number")
	}
	if amount <= 0 {
		return 0, models.ValidationError("amount", "must be greater than zero")
	}
	return amount, nil
}
