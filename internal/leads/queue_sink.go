package leads

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsSendAPI is the subset of the SQS client used by QueueSink.
type sqsSendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// LeadEvent is the message body published for each lead.
type LeadEvent struct {
	Type string `json:"type"`
	Lead *Lead  `json:"lead"`
}

// QueueSink publishes leads to an SQS queue.
type QueueSink struct {
	client   sqsSendAPI
	queueURL string
}

// NewQueueSink creates a queue publisher around the provided SQS client.
func NewQueueSink(client sqsSendAPI, queueURL string) *QueueSink {
	if client == nil {
		panic("leads: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("leads: SQS queueURL cannot be empty")
	}
	return &QueueSink{client: client, queueURL: queueURL}
}

func (q *QueueSink) PublishLead(ctx context.Context, lead *Lead) error {
	body, err := json.Marshal(LeadEvent{Type: "lead." + string(lead.Status), Lead: lead})
	if err != nil {
		return fmt.Errorf("leads: marshal lead event: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"session_id": {DataType: aws.String("String"), StringValue: aws.String(lead.SessionID)},
		},
	})
	if err != nil {
		return fmt.Errorf("leads: failed to send SQS message: %w", err)
	}
	return nil
}
