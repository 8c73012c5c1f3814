package memory

import (
	"context"
	"sync"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

// StaticVideoCatalog answers tier requirements from an in-memory map.
// Videos without an entry require the default tier.
type StaticVideoCatalog struct {
	mu          sync.RWMutex
	tiers       map[domain.VideoID]domain.SubscriptionType
	defaultTier domain.SubscriptionType
}

func NewStaticVideoCatalog(defaultTier domain.SubscriptionType) *StaticVideoCatalog {
	return &StaticVideoCatalog{
		tiers:       make(map[domain.VideoID]domain.SubscriptionType),
		defaultTier: defaultTier,
	}
}

var _ ports.VideoCatalog = (*StaticVideoCatalog)(nil)

func (c *StaticVideoCatalog) RequiredTier(ctx context.Context, videoID domain.VideoID) (domain.SubscriptionType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if tier, ok := c.tiers[videoID]; ok {
		return tier, nil
	}
	return c.defaultTier, nil
}

// SetRequiredTier overrides the tier a single video requires.
func (c *StaticVideoCatalog) SetRequiredTier(videoID domain.VideoID, tier domain.SubscriptionType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiers[videoID] = tier
}
