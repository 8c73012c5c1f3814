package domain

import (
	"strings"
	"time"
)

type UserID string
type VideoID string

type SubscriptionType string

const (
	SubscriptionFree       SubscriptionType = "free"
	SubscriptionPremium    SubscriptionType = "premium"
	SubscriptionEnterprise SubscriptionType = "enterprise"
)

// UserSubscription is a read-only snapshot owned by the billing system.
type UserSubscription struct {
	UserID               UserID
	Type                 SubscriptionType
	ExpiresAt            time.Time
	MaxConcurrentStreams int
	AllowedRegions       []string
}

func (s *UserSubscription) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AllowsRegion matches the resolved viewer location against the
// subscription allowlist. An empty allowlist permits every region.
func (s *UserSubscription) AllowsRegion(country, region string) bool {
	if len(s.AllowedRegions) == 0 {
		return true
	}
	for _, allowed := range s.AllowedRegions {
		if strings.EqualFold(allowed, country) || strings.EqualFold(allowed, region) {
			return true
		}
	}
	return false
}

func (t SubscriptionType) rank() int {
	switch t {
	case SubscriptionFree:
		return 1
	case SubscriptionPremium:
		return 2
	case SubscriptionEnterprise:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether the tier meets the given minimum tier.
func (t SubscriptionType) AtLeast(required SubscriptionType) bool {
	return t.rank() >= required.rank()
}
