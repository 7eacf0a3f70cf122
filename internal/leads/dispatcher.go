package leads

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/leadchat-ai/internal/conversation"
	"github.com/wolfman30/leadchat-ai/internal/observability/metrics"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

const defaultDeliveryTimeout = 30 * time.Second

// Notifier tells the sales team about a new lead.
type Notifier interface {
	NotifyLead(ctx context.Context, lead *Lead) error
}

// Publisher emits the lead to downstream consumers.
type Publisher interface {
	PublishLead(ctx context.Context, lead *Lead) error
}

// Archiver stores the final report outside the database.
type Archiver interface {
	ArchiveReport(ctx context.Context, lead *Lead) error
}

// Dispatcher is the conversation's lead sink. Deliver returns immediately;
// the lead is stored and fanned out in the background and failures are only
// logged and counted.
type Dispatcher struct {
	repo      Repository
	notifier  Notifier
	publisher Publisher
	archiver  Archiver
	timeout   time.Duration
	metrics   *metrics.ConversationMetrics
	logger    *logging.Logger
	wg        sync.WaitGroup
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithNotifier(n Notifier) DispatcherOption {
	return func(d *Dispatcher) { d.notifier = n }
}

func WithPublisher(p Publisher) DispatcherOption {
	return func(d *Dispatcher) { d.publisher = p }
}

func WithArchiver(a Archiver) DispatcherOption {
	return func(d *Dispatcher) { d.archiver = a }
}

func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithMetrics(m *metrics.ConversationMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

var _ conversation.LeadSink = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher; a nil repository keeps leads in memory.
func NewDispatcher(repo Repository, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if repo == nil {
		repo = NewInMemoryRepository()
	}
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		repo:    repo,
		timeout: defaultDeliveryTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver implements conversation.LeadSink.
func (d *Dispatcher) Deliver(ctx context.Context, delivery conversation.Delivery) {
	lead, err := FromDelivery(delivery)
	if err != nil {
		d.logger.Error("leads: dropping invalid delivery", "session_id", delivery.SessionID, "error", err)
		d.metrics.ObserveLeadDelivery(string(delivery.Status), "dispatcher", err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		d.dispatch(ctx, lead)
	}()
}

func (d *Dispatcher) dispatch(ctx context.Context, lead *Lead) {
	logger := d.logger.WithSession(lead.SessionID)

	d.observe(logger, lead, "repository", d.repo.Save(ctx, lead))

	if d.notifier != nil {
		d.observe(logger, lead, "email", d.notifier.NotifyLead(ctx, lead))
	}
	if d.publisher != nil {
		d.observe(logger, lead, "queue", d.publisher.PublishLead(ctx, lead))
	}
	if d.archiver != nil {
		d.observe(logger, lead, "archive", d.archiver.ArchiveReport(ctx, lead))
	}
	logger.Info("leads: lead dispatched", "lead_id", lead.ID, "status", lead.Status)
}

func (d *Dispatcher) observe(logger *logging.Logger, lead *Lead, sink string, err error) {
	d.metrics.ObserveLeadDelivery(string(lead.Status), sink, err)
	if err != nil {
		logger.Error("leads: delivery step failed", "sink", sink, "lead_id", lead.ID, "error", err)
	}
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
