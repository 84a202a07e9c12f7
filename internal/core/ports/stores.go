package ports

import (
	"context"

	"chainlock/internal/core/domain"

	"github.com/google/uuid"
)

// TransactionStore defines persistence operations for transfer authorizations.
//
// CompareAndTransition is the linchpin of the state machine: it atomically
// moves a transaction from expected to next and reports whether this caller
// won the transition. Racing confirmations resolve through it rather than
// through any engine-level locking.
type TransactionStore interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// CompareAndTransition updates state only if the current state equals
	// expected. failureCode is recorded alongside a FAILED transition; it is
	// nil otherwise. Returns (false, nil) when the precondition did not hold.
	CompareAndTransition(ctx context.Context, id uuid.UUID, expected, next domain.TransactionState, failureCode *string) (bool, error)
}
