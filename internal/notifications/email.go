package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// ErrNothingToSend is returned by channels that ignore an event
var ErrNothingToSend = errors.New("nothing to send for event")

// EmailSender delivers a plain-text email
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends email through Amazon SES
type SESSender struct {
	client sesAPI
	from   string
}

func NewSESSender(client sesAPI, from string) *SESSender {
	return &SESSender{client: client, from: from}
}

func (s *SESSender) Send(ctx context.Context, to, subject, body string) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{to}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body:    &sestypes.Body{Text: &sestypes.Content{Data: aws.String(body)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}
	return nil
}

// EmailNotifier emails the seller about fee disclosure and the final outcome
type EmailNotifier struct {
	sender   EmailSender
	currency string
}

func NewEmailNotifier(sender EmailSender, currency string) *EmailNotifier {
	return &EmailNotifier{sender: sender, currency: currency}
}

// Compose renders the email for evt, or ErrNothingToSend
func (n *EmailNotifier) Compose(evt verification.Event) (subject, body string, err error) {
	switch evt.To {
	case workflows.StatusAwaitingPayment:
		subject = fmt.Sprintf("Verification fee for %q", evt.Title)
		body = fmt.Sprintf("Hello %s,\n\nThank you for confirming the analysis of %q.\n"+
			"The verification fee is %.2f %s. Please complete the payment in the portal "+
			"to continue with legal document review.\n", evt.SellerName, evt.Title, evt.FeeAmount, n.currency)
	case workflows.StatusVerified:
		subject = fmt.Sprintf("%q is now a verified listing", evt.Title)
		body = fmt.Sprintf("Hello %s,\n\nYour listing %q has passed verification and now carries the verified badge.\n",
			evt.SellerName, evt.Title)
	case workflows.StatusRejected:
		subject = fmt.Sprintf("Verification of %q was not successful", evt.Title)
		body = fmt.Sprintf("Hello %s,\n\nYour listing %q could not be verified.\nReason: %s\n",
			evt.SellerName, evt.Title, evt.Reason)
	default:
		return "", "", ErrNothingToSend
	}
	return subject, body, nil
}

func (n *EmailNotifier) Publish(ctx context.Context, evt verification.Event) error {
	if evt.SellerEmail == "" {
		return ErrNothingToSend
	}
	subject, body, err := n.Compose(evt)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, evt.SellerEmail, subject, body)
}
