package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"github.com/ngocvh/licensewatch/internal/db"
)

// sesAPI is the slice of the SES client the notifier uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailConfig holds SES settings for the email notifier.
type EmailConfig struct {
	Region      string
	FromEmail   string
	FrontendURL string
}

// EmailNotifier delivers expiry reminders by email via AWS SES. Recipients
// are the asset's responsible user plus the owning department's group
// address.
type EmailNotifier struct {
	client      sesAPI
	from        string
	frontendURL string
	logger      *zap.Logger
}

// NewEmailNotifier creates an SES-backed email notifier.
func NewEmailNotifier(ctx context.Context, cfg EmailConfig, logger *zap.Logger) (*EmailNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &EmailNotifier{
		client:      ses.NewFromConfig(awsCfg),
		from:        cfg.FromEmail,
		frontendURL: cfg.FrontendURL,
		logger:      logger,
	}, nil
}

func (n *EmailNotifier) Channel() Channel {
	return ChannelEmail
}

// Deliver renders and sends the reminder email for one asset.
func (n *EmailNotifier) Deliver(ctx context.Context, asset *db.Asset, daysLeft int, notifType string) (*Delivery, error) {
	recipients := Recipients(asset)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipient address resolves for asset %s", asset.ID)
	}

	subject, html, err := renderEmail(asset, daysLeft, n.frontendURL)
	if err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(html),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("ses send failed: %w", err)
	}

	n.logger.Info("reminder email sent",
		zap.String("asset_id", asset.ID.String()),
		zap.Strings("to", recipients),
		zap.String("message_id", aws.ToString(result.MessageId)),
	)

	return &Delivery{
		MessageID:  aws.ToString(result.MessageId),
		Subject:    subject,
		Recipients: strings.Join(recipients, ", "),
	}, nil
}

// Recipients resolves the email addresses for an asset: the responsible
// user's address and the department's group address, in that order.
func Recipients(asset *db.Asset) []string {
	var recipients []string
	if asset.ResponsibleUser != nil && asset.ResponsibleUser.Email != "" {
		recipients = append(recipients, asset.ResponsibleUser.Email)
	}
	if asset.Department != nil && asset.Department.EmailGroup != nil && *asset.Department.EmailGroup != "" {
		recipients = append(recipients, *asset.Department.EmailGroup)
	}
	return recipients
}
