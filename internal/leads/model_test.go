package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/leadchat-ai/internal/conversation"
)

func TestFromDelivery(t *testing.T) {
	lead, err := FromDelivery(sampleDelivery(conversation.StatusFull))
	require.NoError(t, err)

	assert.Equal(t, "sess-1", lead.SessionID)
	assert.Equal(t, StatusFull, lead.Status)
	assert.Equal(t, "Tomorrow 10:00", lead.MeetingTime)
	assert.Equal(t, "barbershop booking app", lead.Description)
	require.Len(t, lead.Answers, 2)
	assert.Equal(t, "goal", lead.Answers[0].QuestionID)
	assert.Equal(t, "MVP", lead.Answers[0].Answer)
	assert.Equal(t, "features", lead.Answers[1].QuestionID)
	assert.Empty(t, lead.ID)
}

func TestFromDelivery_Invalid(t *testing.T) {
	d := sampleDelivery(conversation.StatusPartial)
	d.SessionID = " "
	_, err := FromDelivery(d)
	assert.ErrorIs(t, err, ErrInvalidDelivery)

	d = sampleDelivery(conversation.StatusPartial)
	d.Status = "maybe"
	_, err = FromDelivery(d)
	assert.ErrorIs(t, err, ErrInvalidDelivery)
}
