package util

import (
	"strings"
	"testing"
)

func TestTruncateLog(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short passes through", "rate limit hit", 100, "rate limit hit"},
		{"exact limit passes through", "12345", 5, "12345"},
		{"long gets suffix", "1234567890abcdefghij", 10, "1234567890... [truncated, 20 bytes total]"},
		{"empty stays empty", "", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateLog(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateLog(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateBytes_CapsErrorBodies(t *testing.T) {
	// Upstream HTML error pages run to many KB; only a prefix is quoted.
	body := []byte(strings.Repeat("x", 3*DefaultLogMaxLen))
	got := TruncateBytes(body)
	if !strings.HasPrefix(got, strings.Repeat("x", DefaultLogMaxLen)) {
		t.Error("TruncateBytes() should preserve the first DefaultLogMaxLen bytes")
	}
	if !strings.Contains(got, "[truncated, 3072 bytes total]") {
		t.Errorf("TruncateBytes() missing truncation marker: %q", got[len(got)-60:])
	}
}
