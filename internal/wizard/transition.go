package wizard

import (
	"errors"
	"fmt"

	"github.com/irocky-stack/rjbtranz/internal/models"
)

// ErrInvalidTransition is returned for (step, action) pairs the state
// machine does not allow.
var ErrInvalidTransition = errors.New("invalid wizard transition")

// Transition is the single, total transition function of the wizard state
// machine: it answers every (step, action) pair, rejecting invalid moves
// explicitly. The transaction type disambiguates the two spots where the
// send and receive paths diverge. Transition decides movement only;
// validation gates and side effects are the wizard's job.
func Transition(step Step, action Action, txType models.TransactionType) (Step, error) {
	switch action {
	case ActionCancel:
		// Cancel returns to Overview from anywhere, discarding all state.
		return StepOverview, nil
	case ActionBack:
		return backStep(step, txType)
	}

	switch step {
	case StepOverview:
		switch action {
		case ActionStartSend:
			return StepTransactionForm, nil
		case ActionStartReceive:
			return StepPendingSelection, nil
		}
	case StepPendingSelection:
		if action == ActionSelectPending {
			return StepTransactionForm, nil
		}
	case StepTransactionForm:
		switch action {
		case ActionSaveOnly, ActionCreateTransaction:
			return StepOverview, nil
		case ActionSaveAndContinue:
			// Only the send path continues to receiver collection; a
			// receive already has its counter-transaction selected.
			if txType == models.TypeSend {
				return StepReceiverInfo, nil
			}
			return StepOverview, nil
		}
	case StepReceiverInfo:
		if action == ActionSubmitReceiver {
			return StepPreview, nil
		}
	case StepPreview:
		if action == ActionConfirm {
			return StepComplete, nil
		}
	case StepComplete:
		// Terminal: only cancel (handled above) leaves this step.
	}

	return step, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, action, step)
}

// backStep moves exactly one step backwards.
func backStep(step Step, txType models.TransactionType) (Step, error) {
	switch step {
	case StepPendingSelection:
		return StepOverview, nil
	case StepTransactionForm:
		if txType == models.TypeReceive {
			return StepPendingSelection, nil
		}
		return StepOverview, nil
	case StepReceiverInfo:
		return StepTransactionForm, nil
	case StepPreview:
		return StepReceiverInfo, nil
	}
	return step, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ActionBack, step)
}
