package memory

import (
	"context"
	"sync"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

// MemorySubscriptionStore holds subscription snapshots pushed in by
// the billing integration. The authority only ever reads them.
type MemorySubscriptionStore struct {
	mu            sync.RWMutex
	subscriptions map[domain.UserID]*domain.UserSubscription

	// Defaults apply when a subscription snapshot omits the field.
	// An empty region list means no geographic restriction.
	defaultMaxStreams int
	defaultRegions    []string
}

func NewMemorySubscriptionStore(defaultMaxStreams int, defaultRegions ...string) *MemorySubscriptionStore {
	return &MemorySubscriptionStore{
		subscriptions:     make(map[domain.UserID]*domain.UserSubscription),
		defaultMaxStreams: defaultMaxStreams,
		defaultRegions:    defaultRegions,
	}
}

var _ ports.SubscriptionStore = (*MemorySubscriptionStore)(nil)

func (s *MemorySubscriptionStore) Get(ctx context.Context, userID domain.UserID) (*domain.UserSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[userID]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	copied := *sub
	copied.AllowedRegions = append([]string(nil), sub.AllowedRegions...)
	if len(copied.AllowedRegions) == 0 && len(s.defaultRegions) > 0 {
		copied.AllowedRegions = append([]string(nil), s.defaultRegions...)
	}
	if copied.MaxConcurrentStreams <= 0 {
		copied.MaxConcurrentStreams = s.defaultMaxStreams
	}
	return &copied, nil
}

// Put replaces the stored snapshot for the subscription's user.
func (s *MemorySubscriptionStore) Put(sub *domain.UserSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sub
	copied.AllowedRegions = append([]string(nil), sub.AllowedRegions...)
	s.subscriptions[sub.UserID] = &copied
}
