package aws

import (
	"context"
	"log"

	"falcontour/src/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sesTypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESMailer struct {
	client SESAPI
	from   string
}

func NewSESMailer(client SESAPI, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

func (m *SESMailer) Send(ctx context.Context, email types.Email) error {
	content := &sesTypes.Content{
		Charset: aws.String("UTF-8"),
		Data:    aws.String(email.Body),
	}
	body := &sesTypes.Body{}
	if email.Html {
		body.Html = content
	} else {
		body.Text = content
	}
	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &sesTypes.Destination{
			ToAddresses: email.To,
		},
		Message: &sesTypes.Message{
			Subject: &sesTypes.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(email.Subject),
			},
			Body: body,
		},
	})
	if err != nil {
		log.Printf("Error sending email: %s\n", err.Error())
		return err
	}
	log.Printf("Sent email with id: %s\n", aws.ToString(out.MessageId))
	return nil
}
