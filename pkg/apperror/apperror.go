package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation rejects malformed input before anything is persisted.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Transaction lifecycle (TXN) ----

func ErrTransactionNotFound() *AppError {
	return New("TXN_001", "Transaction not found", http.StatusNotFound)
}

// ErrInvalidState reports a confirmation against a transaction that already
// left PENDING. The current terminal state is included so repeated confirms
// are a readable no-op.
func ErrInvalidState(currentState string) *AppError {
	return New("TXN_002", fmt.Sprintf("Transaction already %s; confirmation not repeated", currentState), http.StatusConflict)
}

// ErrConfirmationInProgress reports a confirmation racing one that is still
// executing against the wallet.
func ErrConfirmationInProgress() *AppError {
	return New("TXN_002", "Confirmation already in progress for this transaction", http.StatusConflict)
}

// ---- Notification dispatch (NTF) ----

// ErrNotificationDispatch is non-fatal: the transaction stays PENDING.
func ErrNotificationDispatch(err error) *AppError {
	return Wrap("NTF_001", "Confirmation challenge could not be delivered", http.StatusBadGateway, err)
}

// ---- Withdrawal (WDR) ----

// ErrWithdrawalFailed reports a wallet rejection or error. The transaction is
// moved to FAILED and the secret is never retried.
func ErrWithdrawalFailed(err error) *AppError {
	return Wrap("WDR_001", "Withdrawal rejected by wallet", http.StatusPaymentRequired, err)
}

// ErrWithdrawalAmbiguous reports a wallet call whose outcome is unknown, such
// as a timeout after the request was dispatched. Distinct from WDR_001 so
// operators can reconcile against the wallet ledger.
func ErrWithdrawalAmbiguous(err error) *AppError {
	return Wrap("WDR_002", "Withdrawal outcome unknown; transaction marked failed pending reconciliation", http.StatusBadGateway, err)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
