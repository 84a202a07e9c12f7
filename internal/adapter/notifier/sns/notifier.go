// Package sns implements ports.Notifier over AWS SNS, pushing the
// confirmation challenge to a registered APNS device endpoint.
package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"chainlock/config"
	"chainlock/internal/core/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"
)

// PublishAPI is the slice of the SNS client the notifier uses.
type PublishAPI interface {
	Publish(ctx context.Context, params *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

// Notifier publishes confirmation challenges to a fixed target endpoint ARN.
// Fire-and-forget: one publish attempt per challenge, no retry.
type Notifier struct {
	client    PublishAPI
	targetARN string
	log       zerolog.Logger
}

// New creates a Notifier from configuration and an SNS client.
func New(client PublishAPI, cfg config.NotifierConfig, log zerolog.Logger) *Notifier {
	return &Notifier{
		client:    client,
		targetARN: cfg.TargetARN,
		log:       log,
	}
}

// apnsPayload is the APNS push body carried inside the SNS message.
type apnsPayload struct {
	APS         apsBlock `json:"aps"`
	ID          string   `json:"id"`
	Correlation string   `json:"correlation"`
}

type apsBlock struct {
	Alert string `json:"alert"`
	Sound string `json:"sound"`
}

// Publish delivers the challenge to the registered device endpoint.
func (n *Notifier) Publish(ctx context.Context, challenge domain.ConfirmationChallenge) error {
	apns, err := json.Marshal(apnsPayload{
		APS: apsBlock{
			Alert: challenge.Prompt,
			Sound: challenge.Sound,
		},
		ID:          challenge.TransactionID.String(),
		Correlation: challenge.Correlation,
	})
	if err != nil {
		return fmt.Errorf("marshal apns payload: %w", err)
	}

	// SNS json message structure: per-protocol bodies keyed by channel.
	envelope, err := json.Marshal(map[string]string{
		"default":      challenge.Prompt,
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	if err != nil {
		return fmt.Errorf("marshal sns envelope: %w", err)
	}

	_, err = n.client.Publish(ctx, &awssns.PublishInput{
		TargetArn:        aws.String(n.targetARN),
		Message:          aws.String(string(envelope)),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return fmt.Errorf("publish challenge: %w", err)
	}

	n.log.Info().
		Str("tx_id", challenge.TransactionID.String()).
		Msg("confirmation challenge published")

	return nil
}
