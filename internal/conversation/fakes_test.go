package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// fakeGateway records every call in order.
type fakeGateway struct {
	mu        sync.Mutex
	questions []Question
	timeline  Generated
	budget    Generated
	reply     Generated
	calls     []string
	// budgetPrior captures the report handed to the budget call.
	budgetPrior string
	transcript  []Message
	block       chan struct{}
}

func newFakeGateway(n int) *fakeGateway {
	qs := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, Question{
			ID:      fmt.Sprintf("q%d", i+1),
			Prompt:  fmt.Sprintf("Question %d?", i+1),
			Options: []string{"A", "B", "C", "D"},
		})
	}
	return &fakeGateway{
		questions: qs,
		timeline:  Generated{Text: "Option 1: 4 weeks. Option 2: 8 weeks."},
		budget:    Generated{Text: "Option 1: 4 weeks, $5k. Option 2: 8 weeks, $9k."},
		reply:     Generated{Text: "Happy to help!"},
	}
}

func (g *fakeGateway) record(name string) {
	g.mu.Lock()
	g.calls = append(g.calls, name)
	g.mu.Unlock()
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) GenerateQuestions(_ context.Context, _ string) []Question {
	g.record("questions")
	if g.block != nil {
		<-g.block
	}
	return append([]Question(nil), g.questions...)
}

func (g *fakeGateway) GenerateTimelineReport(_ context.Context, _, _, _ string) Generated {
	g.record("timeline")
	return g.timeline
}

func (g *fakeGateway) GenerateBudgetReport(_ context.Context, prior string) Generated {
	g.record("budget")
	g.budgetPrior = prior
	return g.budget
}

func (g *fakeGateway) GenerateFreeformReply(_ context.Context, transcript []Message) Generated {
	g.record("freeform")
	g.transcript = transcript
	return g.reply
}

type fakeSink struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func (s *fakeSink) Deliver(_ context.Context, d Delivery) {
	s.mu.Lock()
	s.deliveries = append(s.deliveries, d)
	s.mu.Unlock()
}

func (s *fakeSink) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}

// failingStore fails the next Save after failNext is set.
type failingStore struct {
	*MemorySessionStore
	mu       sync.Mutex
	failNext bool
}

func (f *failingStore) Save(ctx context.Context, s *Session) error {
	f.mu.Lock()
	fail := f.failNext
	f.failNext = false
	f.mu.Unlock()
	if fail {
		return errors.New("redis down")
	}
	return f.MemorySessionStore.Save(ctx, s)
}

func (f *failingStore) FailNextSave() {
	f.mu.Lock()
	f.failNext = true
	f.mu.Unlock()
}

var testSlots = []string{"Tomorrow 10:00", "Tomorrow 14:00", "Day after tomorrow 11:30"}

func newTestMachine(gw Gateway) *Machine {
	seq := 0
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewMachine(gw, testSlots, nil,
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("msg-%d", seq)
		}),
	)
}
