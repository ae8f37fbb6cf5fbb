package aws

import (
	"context"
	"log"
	"strings"

	"falcontour/src/lib"
	"falcontour/src/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type SQSConsumer struct {
	Name    string
	client  lib.SQSAPI
	handler types.Handler
}

func NewSQSConsumer(client lib.SQSAPI, queue string, handler types.Handler) *SQSConsumer {
	return &SQSConsumer{
		Name:    queue,
		client:  client,
		handler: handler,
	}
}

// Listen long-polls the queue until ctx is cancelled. Each message is
// handed to the handler and deleted once handled.
func (s *SQSConsumer) Listen(ctx context.Context) error {
	qurl, err := s.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(s.Name),
	})
	if err != nil {
		log.Printf("Failed to retrieve queue URL for %s: %s\n", s.Name, err.Error())
		return err
	}
	log.Printf("%s: Listening for messages...", s.Name)
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			if err := s.Poll(ctx, qurl.QueueUrl); err != nil {
				log.Printf("[SQS] Error receiving messages: %s\n", err.Error())
				return
			}
		}
	}()
	return nil
}

// Poll runs one receive round.
func (s *SQSConsumer) Poll(ctx context.Context, qurl *string) error {
	output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            qurl,
		WaitTimeSeconds:     20,
		MaxNumberOfMessages: 10,
	})
	if err != nil {
		return err
	}
	for _, m := range output.Messages {
		s.handle(ctx, qurl, m)
	}
	return nil
}

func (s *SQSConsumer) handle(ctx context.Context, qurl *string, m sqsTypes.Message) {
	s.handler(strings.Clone(aws.ToString(m.Body)))
	lib.SQSDeleteMessage(ctx, s.client, qurl, m)
}
