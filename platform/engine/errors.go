package engine

import (
	"errors"
	"fmt"
)

// Sentinel causes, matched with errors.Is.
var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrIllegalAction    = errors.New("action not in the legal set")
	ErrUnknownTrade     = errors.New("unknown trade offer")
	ErrLineageClosed    = errors.New("negotiation thread is closed")
	ErrNoAuction        = errors.New("no auction in progress")
	ErrGameOver         = errors.New("game is over")
	ErrGameStalled      = errors.New("game halted pending payment reconciliation")
	ErrNotInJail        = errors.New("participant is not in jail")
	ErrInsufficientCash = errors.New("insufficient cash")
)

// ValidationError rejects an illegal action locally. The same decision is
// re-prompted; state is untouched. Items names exactly which trade/asset
// items failed ownership checks so the actor can correct the offer.
type ValidationError struct {
	Reason string
	Items  []string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Items) > 0 {
		return fmt.Sprintf("validation: %s (items: %v)", e.Reason, e.Items)
	}
	return "validation: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

func validationf(cause error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...), Err: cause}
}

// RateLimitError caps trade-initiating actions per turn. Recoverable: the
// decision loop presents an alternative action.
type RateLimitError struct {
	Player int
	Limit  int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: participant %d exceeded %d trade initiations this turn", e.Player, e.Limit)
}

// InsolvencyError reports a debt that survived forced liquidation. It is
// terminal for the debtor: bankruptcy follows.
type InsolvencyError struct {
	Player   int
	Debt     int64
	Raised   int64
	Creditor int // -1 for the bank
}

func (e *InsolvencyError) Error() string {
	return fmt.Sprintf("insolvent: participant %d owes %d, holds %d after liquidation", e.Player, e.Debt, e.Raised)
}

// PaymentError wraps a ledger failure. When Unwrap is ledger.ErrTimeout the
// outcome is unknown: the dependent step halts and the game stalls for
// operator reconciliation instead of guessing.
type PaymentError struct {
	TxID   string
	Reason string
	Err    error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment %s: %s", e.TxID, e.Reason)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// InvariantError is a bug, not a runtime condition. It aborts the game
// instance.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string { return "invariant violated: " + e.Detail }
