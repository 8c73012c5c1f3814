package domain

type DeviceID string

type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
)

// DeviceInfo is derived client-side and is never trusted for
// authorization decisions without a binding-store cross-check.
type DeviceInfo struct {
	DeviceID   DeviceID
	DeviceType DeviceType
	Platform   string
	UserAgent  string
}
