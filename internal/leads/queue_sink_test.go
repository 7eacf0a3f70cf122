package leads

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestQueueSink_PublishLead(t *testing.T) {
	client := &fakeSQS{}
	sink := NewQueueSink(client, "https://sqs.local/leads")

	lead := &Lead{ID: "lead-1", SessionID: "sess-1", Name: "Olena", Status: StatusFull}
	require.NoError(t, sink.PublishLead(context.Background(), lead))

	assert.Equal(t, "https://sqs.local/leads", aws.ToString(client.input.QueueUrl))
	assert.Equal(t, "sess-1", aws.ToString(client.input.MessageAttributes["session_id"].StringValue))

	var event LeadEvent
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.input.MessageBody)), &event))
	assert.Equal(t, "lead.full", event.Type)
	assert.Equal(t, "lead-1", event.Lead.ID)
}

func TestQueueSink_Error(t *testing.T) {
	sink := NewQueueSink(&fakeSQS{err: errors.New("denied")}, "q")
	err := sink.PublishLead(context.Background(), &Lead{Status: StatusPartial})
	assert.ErrorContains(t, err, "denied")
}
