package common

import (
	"context"
	"falcontour/src/config"
	"falcontour/src/lib"
	awslib "falcontour/src/lib/aws"
	"falcontour/src/lib/mailer"
	"falcontour/src/types"
	"falcontour/src/utils"
	"log"
)

// EmailDelivery hands queued mail to sender. Undecodable messages are
// dropped so they do not block the queue.
func EmailDelivery(ctx context.Context, sender mailer.Mailer) types.Handler {
	return func(payload string) {
		email, err := mailer.DecodeQueued(payload)
		if err != nil {
			log.Printf("EmailsToSend: dropping malformed message: %s\n", err.Error())
			return
		}
		if err := sender.Send(ctx, *email); err != nil {
			log.Printf("EmailsToSend: delivery to %v failed: %s\n", email.To, err.Error())
			return
		}
		log.Printf("EmailsToSend: delivered %q to %v\n", email.Subject, email.To)
	}
}

// SQSConsumers starts the mail queue and its dead letter consumers.
func SQSConsumers(ctx context.Context, cfg *config.Config) {
	client := lib.AWSGetSQSClient()
	if client == nil {
		log.Println("SQS client unavailable, queue consumers not started")
		return
	}
	smtp := &lib.SMTPMailer{From: cfg.SenderEmail, FromName: cfg.SenderName}
	emails := awslib.NewSQSConsumer(client, utils.WithSuffix(cfg.EmailQueue), EmailDelivery(ctx, smtp))
	if err := emails.Listen(ctx); err != nil {
		log.Printf("Error starting %s consumer: %s\n", emails.Name, err.Error())
	}
	dlq := awslib.NewSQSConsumer(client, utils.WithSuffix("DLQ"), func(payload string) {
		log.Printf("DLQ: message received: %s\n", payload)
	})
	if err := dlq.Listen(ctx); err != nil {
		log.Printf("Error starting %s consumer: %s\n", dlq.Name, err.Error())
	}
}
