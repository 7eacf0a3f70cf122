package leads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/leadchat-ai/internal/conversation"
	"github.com/wolfman30/leadchat-ai/internal/observability/metrics"
)

type recordingStep struct {
	mu    sync.Mutex
	leads []*Lead
	err   error
	ctxOK bool
	block chan struct{}
}

func (r *recordingStep) record(ctx context.Context, lead *Lead) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads = append(r.leads, lead)
	r.ctxOK = ctx.Err() == nil
	return r.err
}

func (r *recordingStep) NotifyLead(ctx context.Context, lead *Lead) error { return r.record(ctx, lead) }
func (r *recordingStep) PublishLead(ctx context.Context, lead *Lead) error {
	return r.record(ctx, lead)
}
func (r *recordingStep) ArchiveReport(ctx context.Context, lead *Lead) error {
	return r.record(ctx, lead)
}

func (r *recordingStep) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leads)
}

func TestDispatcher_FansOut(t *testing.T) {
	repo := NewInMemoryRepository()
	notifier, publisher, archiver := &recordingStep{}, &recordingStep{}, &recordingStep{}
	d := NewDispatcher(repo, nil, WithNotifier(notifier), WithPublisher(publisher), WithArchiver(archiver))

	ctx, cancel := context.WithCancel(context.Background())
	d.Deliver(ctx, sampleDelivery(conversation.StatusFull))
	cancel()
	require.NoError(t, d.Wait(context.Background()))

	for _, step := range []*recordingStep{notifier, publisher, archiver} {
		require.Equal(t, 1, step.count())
		assert.True(t, step.ctxOK, "step context must survive caller cancellation")
		assert.NotEmpty(t, step.leads[0].ID, "lead is stored before fan-out")
	}
	leads, err := repo.ListRecent(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, StatusFull, leads[0].Status)
}

func TestDispatcher_DeliverDoesNotBlock(t *testing.T) {
	notifier := &recordingStep{block: make(chan struct{})}
	d := NewDispatcher(nil, nil, WithNotifier(notifier))

	done := make(chan struct{})
	go func() {
		d.Deliver(context.Background(), sampleDelivery(conversation.StatusPartial))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked on the notifier")
	}

	close(notifier.block)
	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, 1, notifier.count())
}

func TestDispatcher_FailuresAreCountedNotSurfaced(t *testing.T) {
	reg := prometheus.NewRegistry()
	notifier := &recordingStep{err: errors.New("smtp down")}
	publisher := &recordingStep{}
	d := NewDispatcher(nil, nil,
		WithNotifier(notifier),
		WithPublisher(publisher),
		WithMetrics(metrics.NewConversationMetrics(reg)),
	)

	d.Deliver(context.Background(), sampleDelivery(conversation.StatusPartial))
	require.NoError(t, d.Wait(context.Background()))

	assert.Equal(t, 1, publisher.count(), "a failed step must not stop the others")

	families, err := reg.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "leadchat_leads_deliveries_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := ""
			for _, lp := range m.GetLabel() {
				key += lp.GetName() + "=" + lp.GetValue() + ","
			}
			got[key] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, got["outcome=error,sink=email,status=partial,"])
	assert.Equal(t, 1.0, got["outcome=ok,sink=queue,status=partial,"])
	assert.Equal(t, 1.0, got["outcome=ok,sink=repository,status=partial,"])
}

func TestDispatcher_InvalidDeliveryIsDropped(t *testing.T) {
	notifier := &recordingStep{}
	d := NewDispatcher(nil, nil, WithNotifier(notifier))

	d.Deliver(context.Background(), conversation.Delivery{Status: conversation.StatusFull})
	require.NoError(t, d.Wait(context.Background()))

	assert.Zero(t, notifier.count())
}

func TestDispatcher_WaitHonoursContext(t *testing.T) {
	notifier := &recordingStep{block: make(chan struct{})}
	defer close(notifier.block)
	d := NewDispatcher(nil, nil, WithNotifier(notifier))
	d.Deliver(context.Background(), sampleDelivery(conversation.StatusFull))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)
}
