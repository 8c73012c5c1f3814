package domain

type GeolocationInfo struct {
	Country   string
	Region    string
	City      string
	Latitude  float64
	Longitude float64
	Timezone  string
}

// DefaultGeolocation is the permissive fallback used when the resolver
// is unavailable. It carries no country so geofencing treats it as a
// degraded result rather than a real location.
func DefaultGeolocation() GeolocationInfo {
	return GeolocationInfo{
		Country:  "unknown",
		Region:   "unknown",
		City:     "unknown",
		Timezone: "UTC",
	}
}

func (g GeolocationInfo) Resolved() bool {
	return g.Country != "" && g.Country != "unknown"
}
