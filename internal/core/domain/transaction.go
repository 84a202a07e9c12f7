package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionState represents the lifecycle state of a transfer authorization.
type TransactionState string

const (
	TransactionStatePending   TransactionState = "PENDING"
	TransactionStateConfirmed TransactionState = "CONFIRMED"
	TransactionStateFailed    TransactionState = "FAILED"
)

// Failure codes recorded on FAILED transactions. OUTCOME_UNKNOWN marks a
// withdrawal whose real-world outcome could not be established (e.g. the
// wallet call timed out after it may have executed).
const (
	FailureCodeWithdrawalRejected = "WITHDRAWAL_REJECTED"
	FailureCodeOutcomeUnknown     = "OUTCOME_UNKNOWN"
)

// Transaction is a transfer authorization record. It is created PENDING,
// leaves PENDING at most once, and is retained for audit, never deleted.
type Transaction struct {
	ID          uuid.UUID        `json:"id"`
	FromAddress string           `json:"from_address"`
	ToAddress   string           `json:"to_address"`
	Amount      decimal.Decimal  `json:"amount"`
	State       TransactionState `json:"state"`
	FailureCode *string          `json:"failure_code,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.State == TransactionStateConfirmed || t.State == TransactionStateFailed
}

// CanTransitionTo reports whether a transition into next is legal.
// Only PENDING -> CONFIRMED and PENDING -> FAILED are allowed.
func (t *Transaction) CanTransitionTo(next TransactionState) bool {
	if t.State != TransactionStatePending {
		return false
	}
	return next == TransactionStateConfirmed || next == TransactionStateFailed
}

// NewTransaction creates a PENDING transaction with a fresh id.
func NewTransaction(fromAddress, toAddress string, amount decimal.Decimal) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		FromAddress: fromAddress,
		ToAddress:   toAddress,
		Amount:      amount,
		State:       TransactionStatePending,
		CreatedAt:   time.Now().UTC(),
	}
}
