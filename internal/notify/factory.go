package notify

import (
	"context"
	"fmt"

	commonaws "hospitality-commands/internal/common/aws"
	"hospitality-commands/internal/common/config"
	"hospitality-commands/internal/common/logger"
)

// New builds the router for the configured transport, with SES attached
// for email recipients when enabled.
func New(ctx context.Context, cfg config.MessagingConfig, client Doer, log logger.Logger) (*Router, error) {
	needsAWS := cfg.Transport == config.TransportSNS || cfg.AWS.SES.Enabled

	var awsClients struct {
		ses *commonaws.SESClient
		sns *commonaws.SNSClient
	}
	if needsAWS {
		awsCfg, err := commonaws.LoadConfig(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		awsClients.ses = commonaws.NewSESClient(awsCfg)
		awsClients.sns = commonaws.NewSNSClient(awsCfg)
	}

	var primary Notifier
	switch cfg.Transport {
	case config.TransportTwilio:
		primary = NewTwilioNotifier(client, TwilioConfig{
			AccountSID:  cfg.Twilio.AccountSID,
			AuthToken:   cfg.Twilio.AuthToken,
			PhoneNumber: cfg.Twilio.PhoneNumber,
			BaseURL:     cfg.Twilio.BaseURL,
		})
	case config.TransportSNS:
		primary = NewSNSNotifier(awsClients.sns, cfg.AWS.SNS.SenderID)
	case config.TransportLog:
		primary = NewLogNotifier(log)
	default:
		return nil, fmt.Errorf("unknown messaging transport %q", cfg.Transport)
	}

	var email Notifier
	if cfg.AWS.SES.Enabled {
		email = NewSESNotifier(awsClients.ses, cfg.AWS.SES.FromEmail)
	}

	log.Info("notifier configured", map[string]interface{}{
		"transport": primary.Name(),
		"email":     email != nil,
	})
	return NewRouter(primary, email), nil
}
