package gateway

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRetryAfter_HeaderSeconds(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "12")
	if got := ParseRetryAfter(header, nil); got != 12*time.Second {
		t.Fatalf("got %v, want 12s", got)
	}
}

func TestParseRetryAfter_HeaderHTTPDate(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", time.Now().Add(30*time.Second).UTC().Format(http.TimeFormat))
	got := ParseRetryAfter(header, nil)
	if got < 25*time.Second || got > 31*time.Second {
		t.Fatalf("got %v, want ~30s", got)
	}
}

func TestParseRetryAfter_BodyHint(t *testing.T) {
	body := []byte(`{"error":{"code":6403,"retry_after":"45"}}`)
	if got := ParseRetryAfter(http.Header{}, body); got != 45*time.Second {
		t.Fatalf("got %v, want 45s", got)
	}
}

func TestParseRetryAfter_NoHint(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: nil},
		{name: "garbage", body: []byte(`not json`)},
		{name: "unrelated error", body: []byte(`{"error":{"code":6404,"message":"not found"}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRetryAfter(http.Header{}, tt.body); got != 0 {
				t.Fatalf("got %v, want 0", got)
			}
		})
	}
}

func TestIsRollingThrottle(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{name: "code match", status: 400, body: `{"error":{"code":6502}}`, want: true},
		{name: "message match", status: 400, body: `{"error":{"code":0,"message":"Rolling throttles limit exceeded, please try later"}}`, want: true},
		{name: "other 400", status: 400, body: `{"error":{"code":6401,"message":"invalid parameter"}}`, want: false},
		{name: "429 is not rolling throttle", status: 429, body: `{"error":{"code":6502}}`, want: false},
		{name: "garbage body", status: 400, body: `<html>`, want: false},
		{name: "empty body", status: 400, body: ``, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRollingThrottle(tt.status, []byte(tt.body)); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
