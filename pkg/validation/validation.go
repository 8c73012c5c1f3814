package validation

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var (
	// IDRegex validates video, user and device identifier format
	IDRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

	// RegionRegex validates region codes on subscription allowlists
	RegionRegex = regexp.MustCompile(`^[a-zA-Z -]{2,64}$`)
)

// ValidateVideoID validates a video identifier
func ValidateVideoID(id string) error {
	return validateID("video id", id, 128)
}

// ValidateUserID validates a user identifier
func ValidateUserID(id string) error {
	return validateID("user id", id, 128)
}

// ValidateDeviceID validates a device fingerprint hash
func ValidateDeviceID(id string) error {
	return validateID("device id", id, 256)
}

func validateID(field, id string, maxLen int) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(id) > maxLen {
		return fmt.Errorf("%s is too long (max %d characters)", field, maxLen)
	}
	if !IDRegex.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only letters, numbers, _, ., - allowed)", field)
	}
	return nil
}

// ValidateIP validates a client IP address
func ValidateIP(ip string) error {
	if strings.TrimSpace(ip) == "" {
		return fmt.Errorf("client ip is required")
	}
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid ip address: %s", ip)
	}
	return nil
}

// ValidateRegion validates a region code
func ValidateRegion(region string) error {
	region = strings.TrimSpace(region)
	if region == "" {
		return fmt.Errorf("region is required")
	}
	if !RegionRegex.MatchString(region) {
		return fmt.Errorf("invalid region code: %s", region)
	}
	return nil
}
