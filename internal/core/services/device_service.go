package services

import (
	"context"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

type deviceService struct {
	devices ports.DeviceBindingRepository
	cap     int
}

// NewDeviceService exposes explicit device binding management. Unbind
// is always permitted and immediately frees capacity.
func NewDeviceService(devices ports.DeviceBindingRepository, cap int) ports.DeviceService {
	return &deviceService{devices: devices, cap: cap}
}

func (s *deviceService) BindDevice(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID) error {
	return s.devices.Bind(ctx, userID, deviceID, s.cap)
}

func (s *deviceService) UnbindDevice(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID) error {
	return s.devices.Unbind(ctx, userID, deviceID)
}

func (s *deviceService) BoundDevices(ctx context.Context, userID domain.UserID) ([]domain.DeviceID, error) {
	return s.devices.ListBound(ctx, userID)
}
