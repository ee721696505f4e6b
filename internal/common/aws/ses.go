// internal/common/aws/ses.go
package aws

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var ErrEmailInvalid = errors.New("email requires recipient, subject and body")

// SESAPI is the subset of the SES client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Email is a single HTML message.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

type SESClient struct {
	client  SESAPI
	from    string
	replyTo string
}

// LoadConfig resolves AWS credentials from the default chain for region.
func LoadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}

func NewSESClient(cfg awssdk.Config, from, replyTo string) *SESClient {
	return NewSESClientWithAPI(ses.NewFromConfig(cfg), from, replyTo)
}

func NewSESClientWithAPI(api SESAPI, from, replyTo string) *SESClient {
	return &SESClient{client: api, from: from, replyTo: replyTo}
}

// Send delivers email and returns the SES message id.
func (s *SESClient) Send(ctx context.Context, email Email) (string, error) {
	if len(email.To) == 0 || email.Subject == "" || (email.HTML == "" && email.Text == "") {
		return "", ErrEmailInvalid
	}

	body := &types.Body{}
	if email.HTML != "" {
		body.Html = &types.Content{Data: awssdk.String(email.HTML), Charset: awssdk.String("UTF-8")}
	}
	if email.Text != "" {
		body.Text = &types.Content{Data: awssdk.String(email.Text), Charset: awssdk.String("UTF-8")}
	}

	input := &ses.SendEmailInput{
		Source:      awssdk.String(s.from),
		Destination: &types.Destination{ToAddresses: email.To},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(email.Subject), Charset: awssdk.String("UTF-8")},
			Body:    body,
		},
	}
	if s.replyTo != "" {
		input.ReplyToAddresses = []string{s.replyTo}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send email: %w", err)
	}
	return awssdk.ToString(out.MessageId), nil
}
