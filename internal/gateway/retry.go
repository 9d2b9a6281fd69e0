package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// zohoError is the JSON error envelope Zoho Projects returns on 4xx
// responses.
type zohoError struct {
	Error struct {
		Code    int    `json:"code"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}

// Rolling-throttle rejections come back as HTTP 400 with this code.
const rollingThrottleCode = 6502

// ParseRetryAfter extracts a retry delay from a 429 response: the
// standard Retry-After header first (seconds or HTTP date), then a
// retry hint in the error body. Returns 0 when none is found.
func ParseRetryAfter(header http.Header, body []byte) time.Duration {
	if retryAfter := header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if t, err := http.ParseTime(retryAfter); err == nil {
			return time.Until(t)
		}
	}

	if len(body) == 0 {
		return 0
	}
	var hint struct {
		Error struct {
			RetryAfter string `json:"retry_after"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &hint); err != nil {
		return 0
	}
	if hint.Error.RetryAfter != "" {
		if seconds, err := strconv.Atoi(hint.Error.RetryAfter); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if d, err := time.ParseDuration(hint.Error.RetryAfter); err == nil {
			return d
		}
	}
	return 0
}

// IsRollingThrottle reports whether a 400 response carries Zoho's
// rolling-throttle rejection, which needs a long cooldown rather than a
// quick retry.
func IsRollingThrottle(status int, body []byte) bool {
	if status != http.StatusBadRequest || len(body) == 0 {
		return false
	}
	var ze zohoError
	if err := json.Unmarshal(body, &ze); err != nil {
		return false
	}
	if ze.Error.Code == rollingThrottleCode {
		return true
	}
	msg := strings.ToLower(ze.Error.Message)
	return strings.Contains(msg, "rolling throttle")
}
