package ports

import (
	"context"

	"chainlock/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitiateRequest carries a validated transfer initiation.
// FromAddress may be empty; the engine substitutes the configured fallback
// source address.
type InitiateRequest struct {
	FromAddress string
	ToAddress   string
	Amount      decimal.Decimal
}

// InitiateResult reports a created transaction. NotifyErr is non-nil when the
// challenge dispatch failed; the transaction is still PENDING and confirmable.
type InitiateResult struct {
	Transaction *domain.Transaction
	Message     string
	NotifyErr   error
}

// ConfirmRequest carries the holder's confirmation of a pending transaction.
// Secret is never logged or persisted.
type ConfirmRequest struct {
	TransactionID uuid.UUID
	Secret        string
}

// AuthorizationService owns the two-step transfer authorization state machine.
type AuthorizationService interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*domain.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}
