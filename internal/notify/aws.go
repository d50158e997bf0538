package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier sends plain SMS.
type SNSNotifier struct {
	client   SNSService
	senderID string
}

func NewSNSNotifier(client SNSService, senderID string) *SNSNotifier {
	return &SNSNotifier{client: client, senderID: senderID}
}

func (n *SNSNotifier) Name() string { return "sns" }

func (n *SNSNotifier) Send(ctx context.Context, recipient, body string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(recipient),
		Message:     aws.String(body),
	}
	if n.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.senderID),
			},
		}
	}
	if _, err := n.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

const defaultEmailSubject = "Hospitality AI"

// SESNotifier sends the rendered message as a plain text email.
type SESNotifier struct {
	client    SESService
	fromEmail string
	subject   string
}

func NewSESNotifier(client SESService, fromEmail string) *SESNotifier {
	return &SESNotifier{client: client, fromEmail: fromEmail, subject: defaultEmailSubject}
}

func (n *SESNotifier) Name() string { return "ses" }

func (n *SESNotifier) Send(ctx context.Context, recipient, body string) error {
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(n.subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.fromEmail),
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
