package leads

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage. Save is idempotent per
// session: a second save for the same session keeps the first lead.
type Repository interface {
	Save(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	ListRecent(ctx context.Context, filter ListFilter) ([]*Lead, error)
}

// InMemoryRepository keeps leads in process memory.
type InMemoryRepository struct {
	mu        sync.RWMutex
	leads     map[string]*Lead
	bySession map[string]string
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads:     make(map[string]*Lead),
		bySession: make(map[string]string),
	}
}

func (r *InMemoryRepository) Save(_ context.Context, lead *Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.bySession[lead.SessionID]; ok {
		lead.ID = id
		return nil
	}
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	stored := *lead
	stored.Answers = append([]Answer(nil), lead.Answers...)
	r.leads[lead.ID] = &stored
	r.bySession[lead.SessionID] = lead.ID
	return nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	out := *lead
	return &out, nil
}

func (r *InMemoryRepository) ListRecent(_ context.Context, filter ListFilter) ([]*Lead, error) {
	filter = filter.normalized()

	r.mu.RLock()
	all := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		out := *lead
		all = append(all, &out)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if filter.Offset >= len(all) {
		return []*Lead{}, nil
	}
	all = all[filter.Offset:]
	if len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, nil
}
