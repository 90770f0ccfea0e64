// internal/gateway/ses.go
package gateway

import (
	"context"

	"rentpulse/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the subset of the SES client used by the adapter.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESAdapter sends messages as plain-text email, used for tenants whose
// contact on file is an email address.
type SESAdapter struct {
	client    SESService
	fromEmail string
	subject   string
	logger    logger.Logger
}

func NewSESAdapter(client SESService, fromEmail string, log logger.Logger) *SESAdapter {
	return &SESAdapter{
		client:    client,
		fromEmail: fromEmail,
		subject:   "Message from property management",
		logger:    log.WithFields(map[string]interface{}{"gateway": "ses"}),
	}
}

func (a *SESAdapter) SendRaw(ctx context.Context, recipient, body string) (Result, error) {
	out, err := a.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(a.subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(a.fromEmail),
	})
	if err != nil {
		a.logger.Warn("send rejected", map[string]interface{}{
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
