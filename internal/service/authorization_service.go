package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chainlock/internal/core/domain"
	"chainlock/internal/core/ports"
	"chainlock/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthorizationServiceImpl implements ports.AuthorizationService.
//
// It owns the PENDING -> CONFIRMED | FAILED state machine. No lock is held
// across a request; racing confirmations resolve through the store's
// CompareAndTransition plus a per-id in-flight claim that keeps the wallet
// call to one attempt per transaction.
type AuthorizationServiceImpl struct {
	store    ports.TransactionStore
	wallet   ports.WalletClient
	notifier ports.Notifier

	defaultFromAddress string
	walletTimeout      time.Duration
	notifierTimeout    time.Duration

	inflight sync.Map // uuid.UUID -> struct{}, confirms currently executing
	log      zerolog.Logger
}

// NewAuthorizationService creates a new AuthorizationServiceImpl.
func NewAuthorizationService(
	store ports.TransactionStore,
	wallet ports.WalletClient,
	notifier ports.Notifier,
	defaultFromAddress string,
	walletTimeout time.Duration,
	notifierTimeout time.Duration,
	log zerolog.Logger,
) *AuthorizationServiceImpl {
	return &AuthorizationServiceImpl{
		store:              store,
		wallet:             wallet,
		notifier:           notifier,
		defaultFromAddress: defaultFromAddress,
		walletTimeout:      walletTimeout,
		notifierTimeout:    notifierTimeout,
		log:                log,
	}
}

// Initiate records a transfer request and dispatches the confirmation
// challenge. Challenge dispatch is best-effort: a failure is reported in the
// result but never unwinds the created transaction, which stays PENDING and
// confirmable out of band.
func (s *AuthorizationServiceImpl) Initiate(ctx context.Context, req ports.InitiateRequest) (*ports.InitiateResult, error) {
	if req.ToAddress == "" {
		return nil, apperror.Validation("to_address is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}

	fromAddress := req.FromAddress
	if fromAddress == "" {
		fromAddress = s.defaultFromAddress
	}
	if fromAddress == "" {
		return nil, apperror.Validation("from_address is required and no default source is configured")
	}

	txn := domain.NewTransaction(fromAddress, req.ToAddress, req.Amount)
	if err := s.store.Create(ctx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	result := &ports.InitiateResult{
		Transaction: txn,
		Message:     fmt.Sprintf("transaction %s initiated. confirmation pending.", txn.ID),
	}

	// Single dispatch attempt, bounded; no retry.
	challenge := domain.NewConfirmationChallenge(txn.ID, txn.Amount, txn.ToAddress)
	nctx, cancel := context.WithTimeout(ctx, s.notifierTimeout)
	defer cancel()

	if err := s.notifier.Publish(nctx, challenge); err != nil {
		s.log.Warn().
			Err(err).
			Str("tx_id", txn.ID.String()).
			Msg("confirmation challenge dispatch failed, transaction stays pending")
		result.NotifyErr = apperror.ErrNotificationDispatch(err)
		return result, nil
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("to_address", txn.ToAddress).
		Str("amount", txn.Amount.String()).
		Msg("transaction initiated, challenge dispatched")

	return result, nil
}

// Confirm executes the authorized withdrawal for a pending transaction.
// The secret is handed to the wallet client and discarded; it is never
// logged, persisted, or retried.
func (s *AuthorizationServiceImpl) Confirm(ctx context.Context, req ports.ConfirmRequest) (*domain.Transaction, error) {
	txn, err := s.store.Get(ctx, req.TransactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	if txn.State != domain.TransactionStatePending {
		return nil, apperror.ErrInvalidState(string(txn.State))
	}

	// Claim the id so only one confirmation proceeds to the wallet call.
	if _, loaded := s.inflight.LoadOrStore(txn.ID, struct{}{}); loaded {
		return nil, apperror.ErrConfirmationInProgress()
	}
	defer s.inflight.Delete(txn.ID)

	wctx, cancel := context.WithTimeout(ctx, s.walletTimeout)
	defer cancel()

	werr := s.wallet.Withdraw(wctx, ports.WithdrawRequest{
		Amount:      txn.Amount,
		ToAddress:   txn.ToAddress,
		FromAddress: txn.FromAddress,
		Pin:         req.Secret,
	})

	next := domain.TransactionStateConfirmed
	var failureCode *string
	var confirmErr error

	switch {
	case werr == nil:
	case isAmbiguous(werr):
		next = domain.TransactionStateFailed
		code := domain.FailureCodeOutcomeUnknown
		failureCode = &code
		confirmErr = apperror.ErrWithdrawalAmbiguous(werr)
	default:
		next = domain.TransactionStateFailed
		code := domain.FailureCodeWithdrawalRejected
		failureCode = &code
		confirmErr = apperror.ErrWithdrawalFailed(werr)
	}

	// The transition must land even if the caller has disconnected, or the
	// transaction would stay PENDING after a real wallet attempt.
	casCtx := context.WithoutCancel(ctx)
	won, err := s.store.CompareAndTransition(casCtx, txn.ID, domain.TransactionStatePending, next, failureCode)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("transition transaction: %w", err))
	}
	if !won {
		current, err := s.store.Get(casCtx, txn.ID)
		if err != nil || current == nil {
			return nil, apperror.InternalError(fmt.Errorf("reload transaction after lost transition: %w", err))
		}
		return nil, apperror.ErrInvalidState(string(current.State))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("state", string(next)).
		Msg("transaction transitioned")

	if confirmErr != nil {
		return nil, confirmErr
	}

	confirmed, err := s.store.Get(casCtx, txn.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reload confirmed transaction: %w", err))
	}
	return confirmed, nil
}

// Get returns a transaction for audit reads.
func (s *AuthorizationServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	return txn, nil
}

// isAmbiguous reports whether the wallet call outcome is unknown rather than
// a clean rejection.
func isAmbiguous(err error) bool {
	var amb *ports.AmbiguousOutcomeError
	if errors.As(err, &amb) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
