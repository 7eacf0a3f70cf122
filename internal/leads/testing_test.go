package leads

import (
	"time"

	"github.com/wolfman30/leadchat-ai/internal/conversation"
)

func sampleDelivery(status conversation.DeliveryStatus) conversation.Delivery {
	meeting := ""
	if status == conversation.StatusFull {
		meeting = "Tomorrow 10:00"
	}
	return conversation.Delivery{
		SessionID: "sess-1",
		Lead: conversation.Lead{
			Name:        "Olena",
			Phone:       "+380501112233",
			Email:       "olena@test.com",
			MeetingTime: meeting,
		},
		Brief: conversation.Brief{
			Description: "barbershop booking app",
			Questions:   conversation.DefaultQuestions(),
			Answers: []conversation.Answer{
				{QuestionID: "features", Question: "What is the core functionality?", Text: "Booking/Reservations"},
				{QuestionID: "goal", Question: "What is the main goal of the project?", Text: "MVP"},
			},
		},
		Report:      "MVP: 4 weeks, $5k",
		Status:      status,
		CompletedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}
