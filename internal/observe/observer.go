// Package observe defines the lifecycle hook invoked by the access layer
// at its diagnostic points. The default sink writes log lines; tests
// inject a recording implementation.
package observe

import (
	"log"
	"time"
)

// Observer receives lifecycle events from the token manager, rate
// limiter, gateway and fetchers.
type Observer interface {
	RefreshAttempted(conversationID string)
	RefreshSucceeded(conversationID string, expiresAt time.Time)
	RefreshFailed(conversationID string, err error)
	RateLimitWait(wait time.Duration)
	RetryAttempt(endpoint string, attempt, max int, wait time.Duration)
	PageFetched(resource string, page, count int)
}

// LogObserver writes each event as a single log line.
type LogObserver struct{}

func (LogObserver) RefreshAttempted(conversationID string) {
	log.Printf("🔄 Refreshing token for conversation %s", conversationID)
}

func (LogObserver) RefreshSucceeded(conversationID string, expiresAt time.Time) {
	log.Printf("✅ Refreshed token for conversation %s (expires: %s)", conversationID, expiresAt.Format(time.RFC3339))
}

func (LogObserver) RefreshFailed(conversationID string, err error) {
	log.Printf("❌ Token refresh failed for conversation %s: %v", conversationID, err)
}

func (LogObserver) RateLimitWait(wait time.Duration) {
	log.Printf("⏳ Rate limit engaged, waiting %s", wait)
}

func (LogObserver) RetryAttempt(endpoint string, attempt, max int, wait time.Duration) {
	log.Printf("⚠️ Retry %d/%d for %s in %s", attempt, max, endpoint, wait)
}

func (LogObserver) PageFetched(resource string, page, count int) {
	log.Printf("📦 Fetched %s page %d (%d items)", resource, page, count)
}

type nopObserver struct{}

func (nopObserver) RefreshAttempted(string)                      {}
func (nopObserver) RefreshSucceeded(string, time.Time)           {}
func (nopObserver) RefreshFailed(string, error)                  {}
func (nopObserver) RateLimitWait(time.Duration)                  {}
func (nopObserver) RetryAttempt(string, int, int, time.Duration) {}
func (nopObserver) PageFetched(string, int, int)                 {}

// Nop discards all events.
var Nop Observer = nopObserver{}
