package dto

// InitiateRequest is the request body for starting a transfer.
// Amount travels as a decimal string to avoid float rounding on the wire.
type InitiateRequest struct {
	ToAddress   string  `json:"to_address" binding:"required,min=1,max=128"`
	Amount      string  `json:"amount" binding:"required"`
	FromAddress *string `json:"from_address,omitempty"`
}

// ConfirmRequest is the request body for confirming a pending transfer.
// The secret is forwarded to the wallet verbatim and never echoed back.
type ConfirmRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,uuid"`
	Secret        string `json:"secret" binding:"required"`
}

// TransactionResponse is the wire representation of a transaction.
type TransactionResponse struct {
	ID          string  `json:"id"`
	FromAddress string  `json:"from_address"`
	ToAddress   string  `json:"to_address"`
	Amount      string  `json:"amount"`
	State       string  `json:"state"`
	FailureCode *string `json:"failure_code,omitempty"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

// InitiateResponse is the response body for a successful initiation.
// NotificationError carries the dispatch failure, if any; the transaction
// is created and confirmable either way.
type InitiateResponse struct {
	Transaction       TransactionResponse `json:"transaction"`
	Message           string              `json:"message"`
	NotificationError *string             `json:"notification_error,omitempty"`
}

// ConfirmResponse is the response body for a successful confirmation.
type ConfirmResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Message     string              `json:"message"`
}
