package models

import "time"

// Credential stores the OAuth tokens issued to one conversation.
// ConversationID is the stable chat-session key; there is exactly one
// row per conversation, overwritten on every refresh.
type Credential struct {
	ConversationID string `gorm:"primaryKey"`
	ExternalUserID string
	AccessToken    string
	RefreshToken   string
	ExpiresAt      int64 // epoch milliseconds
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the access token is past its expiry at the
// given instant.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt <= now.UnixMilli()
}
