package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainlock/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionStore implements ports.TransactionStore on PostgreSQL.
//
// CompareAndTransition relies on the row count of a conditional UPDATE: the
// state predicate and the assignment happen in one statement, so two racing
// confirmations can never both move the same row out of PENDING.
type TransactionStore struct {
	pool Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Create inserts a new transaction.
func (s *TransactionStore) Create(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, from_address, to_address, amount, state, failure_code, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.FromAddress, t.ToAddress, t.Amount.String(),
		t.State, t.FailureCode, t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Get fetches a transaction by id. Returns nil, nil when absent.
func (s *TransactionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, from_address, to_address, amount, state, failure_code, created_at, processed_at
		FROM transactions WHERE id = $1`

	return s.scanTransaction(s.pool.QueryRow(ctx, query, id))
}

// CompareAndTransition atomically moves a transaction from expected to next.
// Returns false when the row is missing or no longer in the expected state.
func (s *TransactionStore) CompareAndTransition(ctx context.Context, id uuid.UUID, expected, next domain.TransactionState, failureCode *string) (bool, error) {
	query := `UPDATE transactions SET state = $1, failure_code = $2, processed_at = $3
		WHERE id = $4 AND state = $5`

	tag, err := s.pool.Exec(ctx, query, next, failureCode, time.Now().UTC(), id, expected)
	if err != nil {
		return false, fmt.Errorf("transition transaction state: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
// Amounts travel as NUMERIC text to keep decimal precision intact.
func (s *TransactionStore) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var amount string
	err := row.Scan(
		&t.ID, &t.FromAddress, &t.ToAddress, &amount,
		&t.State, &t.FailureCode, &t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	return t, nil
}
