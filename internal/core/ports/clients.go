package ports

import (
	"context"

	"chainlock/internal/core/domain"

	"github.com/shopspring/decimal"
)

// WithdrawRequest carries a single authorized withdrawal to the wallet API.
// Pin is the holder-supplied secret; implementations must never log or
// persist it.
type WithdrawRequest struct {
	Amount      decimal.Decimal
	ToAddress   string
	FromAddress string
	Pin         string
}

// AmbiguousOutcomeError marks a wallet call whose outcome is unknown: the
// request may have executed (e.g. timeout after dispatch). Callers must not
// treat it as either success or clean rejection.
type AmbiguousOutcomeError struct {
	Err error
}

func (e *AmbiguousOutcomeError) Error() string {
	return "withdrawal outcome unknown: " + e.Err.Error()
}

func (e *AmbiguousOutcomeError) Unwrap() error {
	return e.Err
}

// WalletClient executes withdrawals against the upstream wallet/ledger API.
// Calls are idempotent per transaction id at the engine level: the engine
// invokes Withdraw at most once per transaction.
type WalletClient interface {
	// Withdraw returns nil on acceptance, *AmbiguousOutcomeError when the
	// outcome cannot be established, and any other error on rejection.
	Withdraw(ctx context.Context, req WithdrawRequest) error
}

// Notifier delivers a confirmation challenge to the registered device
// endpoint. Fire-and-forget: no delivery guarantee is assumed by the core,
// and a dispatch failure never unwinds the initiated transaction.
type Notifier interface {
	Publish(ctx context.Context, challenge domain.ConfirmationChallenge) error
}
