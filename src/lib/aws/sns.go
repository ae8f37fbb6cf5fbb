package aws

import (
	"context"
	"encoding/json"
	"log"

	"falcontour/src/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher fans settled payments out to downstream subscribers
// (accounting, analytics) through a single topic.
type SNSPublisher struct {
	client   SNSAPI
	topicArn string
}

func NewSNSPublisher(client SNSAPI, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) PublishSettled(ctx context.Context, evt types.PaymentSettled) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicArn),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(evt.Status)),
			},
		},
	})
	if err != nil {
		log.Printf("Error publishing to topic [%s]: %s\n", p.topicArn, err.Error())
		return err
	}
	log.Printf("Published payment %s with message id: %s\n", evt.PaymentID, aws.ToString(out.MessageId))
	return nil
}
