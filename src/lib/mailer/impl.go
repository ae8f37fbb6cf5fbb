package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"falcontour/src/config"
	"falcontour/src/lib"
	"falcontour/src/lib/aws"
	"falcontour/src/types"
	"falcontour/src/utils"
)

type Mailer interface {
	Send(ctx context.Context, email types.Email) error
}

// QueueMailer enqueues outgoing mail on SQS. The EmailsToSend consumer
// delivers it over SMTP.
type QueueMailer struct {
	client lib.SQSAPI
	queue  string
}

func NewQueueMailer(client lib.SQSAPI, queue string) *QueueMailer {
	return &QueueMailer{client: client, queue: utils.WithSuffix(queue)}
}

func (q *QueueMailer) Send(ctx context.Context, email types.Email) error {
	body, err := json.Marshal(&email)
	if err != nil {
		return err
	}
	if err := lib.SQSProduceMessage(ctx, q.client, q.queue, string(body)); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	return nil
}

// FromConfig picks the mail driver: smtp, ses or sqs.
func FromConfig(cfg *config.Config) Mailer {
	switch cfg.MailDriver {
	case "ses":
		return aws.NewSESMailer(lib.AWSGetSESClient(), cfg.SenderEmail)
	case "sqs":
		return NewQueueMailer(lib.AWSGetSQSClient(), cfg.EmailQueue)
	case "smtp":
	default:
		log.Printf("Unknown mail driver %q, falling back to smtp\n", cfg.MailDriver)
	}
	return &lib.SMTPMailer{From: cfg.SenderEmail, FromName: cfg.SenderName}
}

// DecodeQueued parses a message produced by QueueMailer.
func DecodeQueued(payload string) (*types.Email, error) {
	var email types.Email
	if err := json.Unmarshal([]byte(payload), &email); err != nil {
		return nil, err
	}
	if len(email.To) == 0 {
		return nil, fmt.Errorf("queued email has no recipients")
	}
	return &email, nil
}
