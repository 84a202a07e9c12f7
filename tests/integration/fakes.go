package integration

import (
	"context"
	"sync"
	"sync/atomic"

	"chainlock/internal/core/domain"
	"chainlock/internal/core/ports"
)

// --- Fake wallet client ---

// fakeWallet counts withdraw attempts and returns a configurable outcome.
// An optional gate channel holds every call open until released, so tests can
// pile up concurrent confirmations against one pending transaction.
type fakeWallet struct {
	calls atomic.Int64
	err   error
	gate  chan struct{} // nil = calls return immediately

	mu   sync.Mutex
	last ports.WithdrawRequest
}

func (w *fakeWallet) Withdraw(ctx context.Context, req ports.WithdrawRequest) error {
	w.calls.Add(1)
	w.mu.Lock()
	w.last = req
	w.mu.Unlock()

	if w.gate != nil {
		select {
		case <-w.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return w.err
}

func (w *fakeWallet) lastRequest() ports.WithdrawRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// --- Fake notifier ---

type fakeNotifier struct {
	mu         sync.Mutex
	challenges []domain.ConfirmationChallenge
	err        error
}

func (n *fakeNotifier) Publish(_ context.Context, challenge domain.ConfirmationChallenge) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.challenges = append(n.challenges, challenge)
	return nil
}

func (n *fakeNotifier) published() []domain.ConfirmationChallenge {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.ConfirmationChallenge, len(n.challenges))
	copy(out, n.challenges)
	return out
}
