// internal/gateway/sns.go
package gateway

import (
	"context"

	"rentpulse/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the subset of the SNS client used by the adapter, defined
// here so tests can mock it.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSAdapter sends SMS messages through AWS SNS.
type SNSAdapter struct {
	client   SNSService
	senderID string
	logger   logger.Logger
}

func NewSNSAdapter(client SNSService, senderID string, log logger.Logger) *SNSAdapter {
	return &SNSAdapter{
		client:   client,
		senderID: senderID,
		logger:   log.WithFields(map[string]interface{}{"gateway": "sns"}),
	}
}

func (a *SNSAdapter) SendRaw(ctx context.Context, recipient, body string) (Result, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(recipient),
		Message:     aws.String(body),
	}
	if a.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(a.senderID),
			},
		}
	}

	out, err := a.client.Publish(ctx, input)
	if err != nil {
		a.logger.Warn("publish rejected", map[string]interface{}{
			"recipient": recipient,
			"error":     err.Error(),
		})
		return Result{Accepted: false, Reason: err.Error()}, nil
	}

	ref := ""
	if out.MessageId != nil {
		ref = *out.MessageId
	}
	return Result{Accepted: true, GatewayRef: ref}, nil
}
