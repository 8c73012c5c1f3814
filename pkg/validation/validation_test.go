package validation

import "testing"

func TestValidateVideoID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid", "video_123", false},
		{"valid with dots", "movies.catalog.42", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"invalid characters", "video 123!", true},
		{"too long", string(make([]byte, 200)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVideoID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVideoID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDeviceID(t *testing.T) {
	if err := ValidateDeviceID("a1b2c3d4-fingerprint"); err != nil {
		t.Errorf("expected valid device id, got %v", err)
	}
	if err := ValidateDeviceID(""); err == nil {
		t.Error("expected error for empty device id")
	}
}

func TestValidateIP(t *testing.T) {
	tests := []struct {
		ip      string
		wantErr bool
	}{
		{"192.168.1.10", false},
		{"2001:db8::1", false},
		{"", true},
		{"not-an-ip", true},
		{"999.999.999.999", true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			err := ValidateIP(tt.ip)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIP(%q) error = %v, wantErr %v", tt.ip, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRegion(t *testing.T) {
	if err := ValidateRegion("US"); err != nil {
		t.Errorf("expected valid region, got %v", err)
	}
	if err := ValidateRegion("new york"); err != nil {
		t.Errorf("expected valid region, got %v", err)
	}
	if err := ValidateRegion(""); err == nil {
		t.Error("expected error for empty region")
	}
	if err := ValidateRegion("x"); err == nil {
		t.Error("expected error for single-character region")
	}
}
