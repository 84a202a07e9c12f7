// Package memory provides the reference in-memory TransactionStore. It backs
// development mode (storage.driver=memory) and the integration test app.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chainlock/internal/core/domain"

	"github.com/google/uuid"
)

// TransactionStore implements ports.TransactionStore with a mutex-guarded map.
type TransactionStore struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
}

// NewTransactionStore creates an empty in-memory store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{transactions: make(map[uuid.UUID]*domain.Transaction)}
}

// Create inserts a new transaction. The id must be unused.
func (s *TransactionStore) Create(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[t.ID]; exists {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

// Get returns a copy of the transaction, or nil, nil when absent.
func (s *TransactionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// CompareAndTransition atomically moves a transaction from expected to next
// under the store lock. Returns false when the id is unknown or the state
// check fails.
func (s *TransactionStore) CompareAndTransition(ctx context.Context, id uuid.UUID, expected, next domain.TransactionState, failureCode *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.State != expected {
		return false, nil
	}
	now := time.Now().UTC()
	t.State = next
	t.FailureCode = failureCode
	t.ProcessedAt = &now
	return true, nil
}
