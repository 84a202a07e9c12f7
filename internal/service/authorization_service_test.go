package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chainlock/internal/core/domain"
	"chainlock/internal/core/ports"
	"chainlock/internal/core/ports/mocks"
	"chainlock/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testDefaultFrom = "2MygS9Wmdm9qT4pGaNN1nv4fy64vpYTHZCd"

type authTestDeps struct {
	svc      *AuthorizationServiceImpl
	store    *mocks.MockTransactionStore
	wallet   *mocks.MockWalletClient
	notifier *mocks.MockNotifier
	ctrl     *gomock.Controller
}

func setupAuthorizationService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		store:    mocks.NewMockTransactionStore(ctrl),
		wallet:   mocks.NewMockWalletClient(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewAuthorizationService(
		d.store, d.wallet, d.notifier,
		testDefaultFrom,
		5*time.Second, 2*time.Second,
		zerolog.Nop(),
	)
	return d
}

func pendingTransaction() *domain.Transaction {
	return domain.NewTransaction(testDefaultFrom, "addrB", decimal.RequireFromString("0.5"))
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

// ==================== Initiate ====================

func TestAuthorizationService_Initiate_Success(t *testing.T) {
	d := setupAuthorizationService(t)
	ctx := context.Background()

	var created *domain.Transaction
	d.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, txn *domain.Transaction) error {
			created = txn
			return nil
		})
	d.notifier.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ch domain.ConfirmationChallenge) error {
			assert.Contains(t, ch.Prompt, "0.5 BTC")
			return nil
		})

	result, err := d.svc.Initiate(ctx, ports.InitiateRequest{
		ToAddress: "addrB",
		Amount:    decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	require.NotNil(t, created)
	assert.Equal(t, domain.TransactionStatePending, created.State)
	assert.Equal(t, testDefaultFrom, created.FromAddress, "missing from_address falls back to configured source")
	assert.Equal(t, "addrB", created.ToAddress)

	assert.Equal(t, created.ID, result.Transaction.ID)
	assert.Contains(t, result.Message, created.ID.String())
	assert.Contains(t, result.Message, "confirmation pending")
	assert.NoError(t, result.NotifyErr)
}

func TestAuthorizationService_Initiate_ExplicitFromAddress(t *testing.T) {
	d := setupAuthorizationService(t)

	d.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.notifier.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	result, err := d.svc.Initiate(context.Background(), ports.InitiateRequest{
		FromAddress: "addrA",
		ToAddress:   "addrB",
		Amount:      decimal.RequireFromString("1.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, "addrA", result.Transaction.FromAddress)
}

func TestAuthorizationService_Initiate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  ports.InitiateRequest
	}{
		{"empty to_address", ports.InitiateRequest{Amount: decimal.RequireFromString("1.0")}},
		{"zero amount", ports.InitiateRequest{ToAddress: "addrB", Amount: decimal.Zero}},
		{"negative amount", ports.InitiateRequest{ToAddress: "addrB", Amount: decimal.RequireFromString("-0.1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupAuthorizationService(t)
			// No store or notifier calls expected: rejected before persistence.
			result, err := d.svc.Initiate(context.Background(), tt.req)
			assert.Nil(t, result)
			assert.Equal(t, "VAL_001", appErrCode(t, err))
		})
	}
}

func TestAuthorizationService_Initiate_NotifierFailureIsNonFatal(t *testing.T) {
	d := setupAuthorizationService(t)

	d.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.notifier.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(fmt.Errorf("endpoint disabled"))

	result, err := d.svc.Initiate(context.Background(), ports.InitiateRequest{
		ToAddress: "addrB",
		Amount:    decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err, "initiation succeeds even when the challenge cannot be delivered")
	require.NotNil(t, result)
	require.Error(t, result.NotifyErr)

	var appErr *apperror.AppError
	require.ErrorAs(t, result.NotifyErr, &appErr)
	assert.Equal(t, "NTF_001", appErr.Code)
	assert.Equal(t, domain.TransactionStatePending, result.Transaction.State)
}

func TestAuthorizationService_Initiate_StoreFailure(t *testing.T) {
	d := setupAuthorizationService(t)

	d.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(fmt.Errorf("connection reset"))
	// Notifier must not be called when persistence fails.

	result, err := d.svc.Initiate(context.Background(), ports.InitiateRequest{
		ToAddress: "addrB",
		Amount:    decimal.RequireFromString("0.5"),
	})
	assert.Nil(t, result)
	assert.Equal(t, "SYS_001", appErrCode(t, err))
}

// ==================== Confirm ====================

func TestAuthorizationService_Confirm_Success(t *testing.T) {
	d := setupAuthorizationService(t)
	ctx := context.Background()
	txn := pendingTransaction()

	confirmed := *txn
	confirmed.State = domain.TransactionStateConfirmed

	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(txn, nil)
	d.wallet.EXPECT().Withdraw(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.WithdrawRequest) error {
			assert.True(t, txn.Amount.Equal(req.Amount))
			assert.Equal(t, txn.ToAddress, req.ToAddress)
			assert.Equal(t, txn.FromAddress, req.FromAddress)
			assert.Equal(t, "correct-pin", req.Pin)
			return nil
		})
	d.store.EXPECT().
		CompareAndTransition(gomock.Any(), txn.ID, domain.TransactionStatePending, domain.TransactionStateConfirmed, nil).
		Return(true, nil)
	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(&confirmed, nil)

	result, err := d.svc.Confirm(ctx, ports.ConfirmRequest{TransactionID: txn.ID, Secret: "correct-pin"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStateConfirmed, result.State)
}

func TestAuthorizationService_Confirm_NotFound(t *testing.T) {
	d := setupAuthorizationService(t)
	id := uuid.New()

	d.store.EXPECT().Get(gomock.Any(), id).Return(nil, nil)

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmRequest{TransactionID: id, Secret: "pin"})
	assert.Equal(t, "TXN_001", appErrCode(t, err))
}

func TestAuthorizationService_Confirm_AlreadyTerminal(t *testing.T) {
	for _, state := range []domain.TransactionState{domain.TransactionStateConfirmed, domain.TransactionStateFailed} {
		t.Run(string(state), func(t *testing.T) {
			d := setupAuthorizationService(t)
			txn := pendingTransaction()
			txn.State = state

			d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(txn, nil)
			// No wallet call: idempotent rejection.

			_, err := d.svc.Confirm(context.Background(), ports.ConfirmRequest{TransactionID: txn.ID, Secret: "pin"})
			require.Error(t, err)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "TXN_002", appErr.Code)
			assert.Contains(t, appErr.Message, string(state))
		})
	}
}

func TestAuthorizationService_Confirm_WalletRejection(t *testing.T) {
	d := setupAuthorizationService(t)
	txn := pendingTransaction()

	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(txn, nil)
	d.wallet.EXPECT().Withdraw(gomock.Any(), gomock.Any()).Return(fmt.Errorf("invalid pin"))
	d.store.EXPECT().
		CompareAndTransition(gomock.Any(), txn.ID, domain.TransactionStatePending, domain.TransactionStateFailed, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, _, _ domain.TransactionState, failureCode *string) (bool, error) {
			require.NotNil(t, failureCode)
			assert.Equal(t, domain.FailureCodeWithdrawalRejected, *failureCode)
			return true, nil
		})

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmRequest{TransactionID: txn.ID, Secret: "wrong-pin"})
	assert.Equal(t, "WDR_001", appErrCode(t, err))
}

func TestAuthorizationService_Confirm_AmbiguousOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"wrapped ambiguous error", &ports.AmbiguousOutcomeError{Err: fmt.Errorf("request dispatched, response lost")}},
		{"deadline exceeded", fmt.Errorf("wallet call: %w", context.DeadlineExceeded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupAuthorizationService(t)
			txn := pendingTransaction()

			d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(txn, nil)
			d.wallet.EXPECT().Withdraw(gomock.Any(), gomock.Any()).Return(tt.err)
			d.store.EXPECT().
				CompareAndTransition(gomock.Any(), txn.ID, domain.TransactionStatePending, domain.TransactionStateFailed, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ uuid.UUID, _, _ domain.TransactionState, failureCode *string) (bool, error) {
					require.NotNil(t, failureCode)
					assert.Equal(t, domain.FailureCodeOutcomeUnknown, *failureCode)
					return true, nil
				})

			_, err := d.svc.Confirm(context.Background(), ports.ConfirmRequest{TransactionID: txn.ID, Secret: "pin"})
			assert.Equal(t, "WDR_002", appErrCode(t, err),
				"unknown wallet outcome must not be reported as a clean failure")
		})
	}
}

func TestAuthorizationService_Confirm_LostTransitionRace(t *testing.T) {
	d := setupAuthorizationService(t)
	txn := pendingTransaction()

	raced := *txn
	raced.State = domain.TransactionStateConfirmed

	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(txn, nil)
	d.wallet.EXPECT().Withdraw(gomock.Any(), gomock.Any()).Return(nil)
	d.store.EXPECT().
		CompareAndTransition(gomock.Any(), txn.ID, domain.TransactionStatePending, domain.TransactionStateConfirmed, nil).
		Return(false, nil)
	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(&raced, nil)

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmRequest{TransactionID: txn.ID, Secret: "pin"})
	assert.Equal(t, "TXN_002", appErrCode(t, err))
}

func TestAuthorizationService_Confirm_TransitionSurvivesCallerCancellation(t *testing.T) {
	d := setupAuthorizationService(t)
	txn := pendingTransaction()

	ctx, cancel := context.WithCancel(context.Background())

	confirmed := *txn
	confirmed.State = domain.TransactionStateConfirmed

	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(txn, nil)
	d.wallet.EXPECT().Withdraw(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ ports.WithdrawRequest) error {
			// Caller disconnects while the wallet call is in flight.
			cancel()
			return nil
		})
	d.store.EXPECT().
		CompareAndTransition(gomock.Any(), txn.ID, domain.TransactionStatePending, domain.TransactionStateConfirmed, nil).
		DoAndReturn(func(casCtx context.Context, _ uuid.UUID, _, _ domain.TransactionState, _ *string) (bool, error) {
			assert.NoError(t, casCtx.Err(), "transition context must be immune to caller cancellation")
			return true, nil
		})
	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(&confirmed, nil)

	_, err := d.svc.Confirm(ctx, ports.ConfirmRequest{TransactionID: txn.ID, Secret: "pin"})
	require.NoError(t, err)
}

func TestAuthorizationService_Confirm_ConcurrentClaims_SingleWalletCall(t *testing.T) {
	d := setupAuthorizationService(t)
	txn := pendingTransaction()

	confirmed := *txn
	confirmed.State = domain.TransactionStateConfirmed

	const workers = 8
	release := make(chan struct{})

	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(txn, nil).Times(workers)
	// Exactly one caller may reach the wallet; it blocks until all workers
	// have had the chance to collide on the in-flight claim.
	d.wallet.EXPECT().Withdraw(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ ports.WithdrawRequest) error {
			<-release
			return nil
		}).Times(1)
	d.store.EXPECT().
		CompareAndTransition(gomock.Any(), txn.ID, domain.TransactionStatePending, domain.TransactionStateConfirmed, nil).
		Return(true, nil).Times(1)
	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(&confirmed, nil).Times(1)

	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.svc.Confirm(context.Background(), ports.ConfirmRequest{TransactionID: txn.ID, Secret: "pin"})
			results <- err
		}()
	}

	// Every loser fails fast on the in-flight claim while the winner is
	// parked inside the wallet call. Drain the losers first, then let the
	// winner finish.
	for i := 0; i < workers-1; i++ {
		err := <-results
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "TXN_002", appErr.Code)
	}
	close(release)
	assert.NoError(t, <-results)
	wg.Wait()
}

// ==================== Get ====================

func TestAuthorizationService_Get(t *testing.T) {
	d := setupAuthorizationService(t)
	txn := pendingTransaction()

	d.store.EXPECT().Get(gomock.Any(), txn.ID).Return(txn, nil)

	result, err := d.svc.Get(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, result.ID)
}

func TestAuthorizationService_Get_NotFound(t *testing.T) {
	d := setupAuthorizationService(t)
	id := uuid.New()

	d.store.EXPECT().Get(gomock.Any(), id).Return(nil, nil)

	_, err := d.svc.Get(context.Background(), id)
	assert.Equal(t, "TXN_001", appErrCode(t, err))
}

func TestAuthorizationService_Get_StoreError(t *testing.T) {
	d := setupAuthorizationService(t)
	id := uuid.New()

	d.store.EXPECT().Get(gomock.Any(), id).Return(nil, errors.New("boom"))

	_, err := d.svc.Get(context.Background(), id)
	assert.Equal(t, "SYS_001", appErrCode(t, err))
}
