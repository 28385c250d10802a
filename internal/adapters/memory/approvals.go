package memory

import (
	"context"
	"sync"
	"time"

	"flex_reviews/internal/domain"
)

// ApprovalStore keeps approvals in process memory. State is lost on restart.
type ApprovalStore struct {
	mu  sync.Mutex
	m   domain.Approvals
	bus *Broadcaster
	now func() time.Time
}

func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{m: domain.Approvals{}, bus: NewBroadcaster(), now: time.Now}
}

func (s *ApprovalStore) Get(ctx context.Context) (domain.Approvals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Clone(), nil
}

func (s *ApprovalStore) Set(ctx context.Context, id string, approved bool) error {
	s.mu.Lock()
	s.m[id] = approved
	s.mu.Unlock()
	s.bus.Publish(domain.ApprovalChange{ReviewID: id, Approved: approved, At: s.now()})
	return nil
}

func (s *ApprovalStore) Toggle(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	v := !s.m[id]
	s.m[id] = v
	s.mu.Unlock()
	s.bus.Publish(domain.ApprovalChange{ReviewID: id, Approved: v, At: s.now()})
	return v, nil
}

func (s *ApprovalStore) Subscribe(ctx context.Context) (<-chan domain.ApprovalChange, error) {
	return s.bus.Subscribe(ctx), nil
}
