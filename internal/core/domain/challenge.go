package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfirmationChallenge is the push payload soliciting the holder's secret.
// It is ephemeral: built per initiation, handed to the Notifier, never stored.
type ConfirmationChallenge struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Prompt        string    `json:"prompt"`
	Sound         string    `json:"sound"`
	Correlation   string    `json:"correlation"`
}

// NewConfirmationChallenge builds the challenge for a freshly created transaction.
// The correlation payload is opaque to the core; the device echoes the
// transaction id back through the confirm endpoint.
func NewConfirmationChallenge(txID uuid.UUID, amount decimal.Decimal, toAddress string) ConfirmationChallenge {
	return ConfirmationChallenge{
		TransactionID: txID,
		Prompt:        fmt.Sprintf("You've requested to send %s BTC to %s. Please confirm with your device.", amount.String(), toAddress),
		Sound:         "default",
		Correlation:   txID.String(),
	}
}
