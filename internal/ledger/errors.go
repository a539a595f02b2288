package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAccount indicates that no account exists for the given owner.
	ErrNoAccount = errors.New("account not found")

	// ErrAccountExists indicates that an account already exists for the owner.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidAmount rejects zero, negative or missing transfer amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidRecipient rejects transfers without a recipient.
	ErrInvalidRecipient = errors.New("recipient is required")

	// ErrSelfTransfer rejects transfers where sender and recipient match.
	ErrSelfTransfer = errors.New("cannot transfer to self")

	// ErrInvalidSender indicates the acting user has no account.
	ErrInvalidSender = errors.New("invalid sender")

	// ErrInvalidReceiver indicates the recipient has no account.
	ErrInvalidReceiver = errors.New("invalid receiver")

	// ErrTransferAborted indicates a store-level fault or unresolvable
	// conflict; the transfer had no effect and may be retried by the caller.
	ErrTransferAborted = errors.New("transfer aborted")
)

// InsufficientFundsError carries the sender's current balance so callers can
// display it alongside the rejection.
type InsufficientFundsError struct {
	Balance int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d", e.Balance)
}

// IsBusinessError reports whether err belongs to the transfer taxonomy, as
// opposed to an unexpected store fault. Business errors are never retried and
// never wrapped as ErrTransferAborted.
func IsBusinessError(err error) bool {
	var insufficient *InsufficientFundsError
	if errors.As(err, &insufficient) {
		return true
	}
	for _, known := range []error{
		ErrNoAccount,
		ErrAccountExists,
		ErrInvalidAmount,
		ErrInvalidRecipient,
		ErrSelfTransfer,
		ErrInvalidSender,
		ErrInvalidReceiver,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
