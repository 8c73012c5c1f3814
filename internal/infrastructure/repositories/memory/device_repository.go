package memory

import (
	"context"
	"sync"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

// MemoryDeviceRepository keeps per-user bound device sets. The cap
// check and the insert happen under one lock so two racing bind
// attempts cannot both squeeze under the cap.
type MemoryDeviceRepository struct {
	mu      sync.Mutex
	devices map[domain.UserID]map[domain.DeviceID]struct{}
}

func NewMemoryDeviceRepository() ports.DeviceBindingRepository {
	return &MemoryDeviceRepository{
		devices: make(map[domain.UserID]map[domain.DeviceID]struct{}),
	}
}

func (r *MemoryDeviceRepository) Bind(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID, cap int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bound := r.devices[userID]
	if _, ok := bound[deviceID]; ok {
		return nil
	}
	if len(bound) >= cap {
		return domain.ErrDeviceLimitReached
	}
	if bound == nil {
		bound = make(map[domain.DeviceID]struct{})
		r.devices[userID] = bound
	}
	bound[deviceID] = struct{}{}
	return nil
}

func (r *MemoryDeviceRepository) Unbind(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bound := r.devices[userID]; bound != nil {
		delete(bound, deviceID)
		if len(bound) == 0 {
			delete(r.devices, userID)
		}
	}
	return nil
}

func (r *MemoryDeviceRepository) ListBound(ctx context.Context, userID domain.UserID) ([]domain.DeviceID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bound := r.devices[userID]
	ids := make([]domain.DeviceID, 0, len(bound))
	for id := range bound {
		ids = append(ids, id)
	}
	return ids, nil
}
