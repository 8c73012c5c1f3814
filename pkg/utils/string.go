package utils

import "strings"

// MaskSensitive masks all but the first visibleChars characters.
// Used when logging device fingerprints and signing material.
func MaskSensitive(s string, visibleChars int) string {
	if len(s) <= visibleChars {
		return strings.Repeat("*", len(s))
	}
	return s[:visibleChars] + strings.Repeat("*", len(s)-visibleChars)
}
