// Package noop provides a Notifier that logs instead of dispatching,
// for local development without push credentials.
package noop

import (
	"context"

	"chainlock/internal/core/domain"

	"github.com/rs/zerolog"
)

type Notifier struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Notifier {
	return &Notifier{log: log}
}

func (n *Notifier) Publish(_ context.Context, challenge domain.ConfirmationChallenge) error {
	n.log.Info().
		Str("tx_id", challenge.TransactionID.String()).
		Str("prompt", challenge.Prompt).
		Msg("push notifications disabled; challenge not dispatched")
	return nil
}
