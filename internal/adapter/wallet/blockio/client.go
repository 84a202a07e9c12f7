// Package blockio implements ports.WalletClient against the Block.io
// withdrawal API.
package blockio

import (
	"context"
	"errors"
	"fmt"
	"net"

	"chainlock/config"
	"chainlock/internal/core/ports"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// withdrawRequest is the Block.io v2 withdraw call body. The pin authorizes
// the withdrawal and exists only for the duration of the request.
type withdrawRequest struct {
	Amounts       string `json:"amounts"`
	ToAddresses   string `json:"to_addresses"`
	FromAddresses string `json:"from_addresses"`
	Pin           string `json:"pin"`
}

// withdrawResponse is the Block.io envelope: status is "success" or "fail".
type withdrawResponse struct {
	Status string `json:"status"`
	Data   struct {
		ErrorMessage string `json:"error_message"`
		TxID         string `json:"txid"`
	} `json:"data"`
}

// Client calls the Block.io withdrawal API. The API key and version are fixed
// process-wide at startup.
type Client struct {
	http       *resty.Client
	apiKey     string
	apiVersion int
	log        zerolog.Logger
}

// NewClient creates a Block.io client from configuration.
func NewClient(cfg config.WalletConfig, log zerolog.Logger) *Client {
	rc := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:       rc,
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		log:        log,
	}
}

// Withdraw executes a single withdrawal. A transport timeout after the
// request was dispatched is reported as *ports.AmbiguousOutcomeError: the
// withdrawal may have executed and must not be retried blindly.
func (c *Client) Withdraw(ctx context.Context, req ports.WithdrawRequest) error {
	var result withdrawResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("api_key", c.apiKey).
		SetBody(withdrawRequest{
			Amounts:       req.Amount.String(),
			ToAddresses:   req.ToAddress,
			FromAddresses: req.FromAddress,
			Pin:           req.Pin,
		}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/v%d/withdraw/", c.apiVersion))

	if err != nil {
		if isTimeout(err) {
			return &ports.AmbiguousOutcomeError{Err: err}
		}
		return fmt.Errorf("wallet request: %w", err)
	}

	if resp.IsError() || result.Status != "success" {
		msg := result.Data.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("wallet returned HTTP %d", resp.StatusCode())
		}
		c.log.Warn().
			Int("http_status", resp.StatusCode()).
			Str("to_address", req.ToAddress).
			Msg("withdrawal rejected by wallet")
		return fmt.Errorf("withdrawal rejected: %s", msg)
	}

	c.log.Info().
		Str("to_address", req.ToAddress).
		Str("amount", req.Amount.String()).
		Msg("withdrawal accepted by wallet")

	return nil
}

// isTimeout reports whether the transport failed in a way that leaves the
// withdrawal outcome unknown.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
