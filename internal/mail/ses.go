package mail

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/iliyamo/credits-api/internal/apperr"
	"github.com/iliyamo/credits-api/internal/config"
)

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers mail through Amazon SES.
type SESSender struct {
	client sesAPI
}

// NewSESSender builds an SES client. Static keys are used when configured,
// otherwise the default AWS credential chain applies.
func NewSESSender(ctx context.Context, cfg config.MailConfig) (*SESSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperr.Wrap("ses", "load_config", err, map[string]interface{}{"region": cfg.AWSRegion})
	}
	return &SESSender{client: sesv2.NewFromConfig(awsCfg)}, nil
}

func (s *SESSender) Send(ctx context.Context, m Message) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.From),
		Destination:      &types.Destination{ToAddresses: []string{m.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(m.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(m.Text)},
					Html: &types.Content{Data: aws.String(m.HTML)},
				},
			},
		},
	})
	return apperr.Wrap("ses", "send_email", err, map[string]interface{}{
		"recipient": m.To,
		"subject":   m.Subject,
	})
}
