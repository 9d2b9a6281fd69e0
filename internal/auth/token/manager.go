// Package token handles the credential lifecycle including auto-refresh.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/botworks/zohobridge/internal/db/models"
	"github.com/botworks/zohobridge/internal/observe"
	"github.com/botworks/zohobridge/internal/store"
)

var (
	// ErrNotAuthenticated means no credential is stored for the
	// conversation; the user must complete the OAuth handshake.
	ErrNotAuthenticated = errors.New("conversation is not authenticated")

	// ErrNoRefreshToken means a credential exists but carries no usable
	// refresh token.
	ErrNoRefreshToken = errors.New("credential has no refresh token")
)

// RefreshError reports a rejected or malformed OAuth refresh exchange.
// The stored credential is left untouched when this is returned.
type RefreshError struct {
	ConversationID string
	Permanent      bool
	Err            error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed for conversation %s: %v", e.ConversationID, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Config holds the fixed authorization endpoint and client credentials
// used for the refresh_token grant.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// Manager resolves a currently-valid access token per conversation,
// refreshing transparently when the stored one has expired.
type Manager struct {
	store *store.Store
	cfg   Config
	obs   observe.Observer
	now   func() time.Time
	group singleflight.Group
}

// NewManager creates a token manager over the credential store.
func NewManager(st *store.Store, cfg Config, obs observe.Observer) *Manager {
	if obs == nil {
		obs = observe.Nop
	}
	return &Manager{
		store: st,
		cfg:   cfg,
		obs:   obs,
		now:   time.Now,
	}
}

// GetValidToken returns the stored credential when it is still valid,
// otherwise refreshes it first. Fails with ErrNotAuthenticated when the
// conversation has no credential at all.
func (m *Manager) GetValidToken(ctx context.Context, conversationID string) (*models.Credential, error) {
	cred, err := m.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAuthenticated, conversationID)
	}
	if !cred.Expired(m.now()) {
		return cred, nil
	}
	return m.Refresh(ctx, conversationID, cred.RefreshToken)
}

// Refresh exchanges the refresh token for a new access token and
// persists the result. Concurrent refreshes for the same conversation
// are coalesced into a single upstream call.
func (m *Manager) Refresh(ctx context.Context, conversationID, refreshToken string) (*models.Credential, error) {
	v, err, _ := m.group.Do(conversationID, func() (interface{}, error) {
		return m.refresh(ctx, conversationID, refreshToken)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Credential), nil
}

func (m *Manager) refresh(ctx context.Context, conversationID, refreshToken string) (*models.Credential, error) {
	if refreshToken == "" {
		// Recover the latest known refresh token; a concurrent refresh
		// may have rotated it since the caller loaded the record.
		cred, err := m.store.Get(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if cred == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotAuthenticated, conversationID)
		}
		refreshToken = cred.RefreshToken
		if refreshToken == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoRefreshToken, conversationID)
		}
	}

	m.obs.RefreshAttempted(conversationID)

	conf := &oauth2.Config{
		ClientID:     m.cfg.ClientID,
		ClientSecret: m.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  m.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		m.obs.RefreshFailed(conversationID, err)
		return nil, &RefreshError{
			ConversationID: conversationID,
			Permanent:      isPermanentRefreshError(err),
			Err:            err,
		}
	}
	if tok.AccessToken == "" || tok.Expiry.IsZero() {
		err := fmt.Errorf("refresh response missing access_token or expires_in")
		m.obs.RefreshFailed(conversationID, err)
		return nil, &RefreshError{ConversationID: conversationID, Err: err}
	}

	// Prefer a rotated refresh token when the server issues one,
	// otherwise keep the one we just used.
	newRefresh := refreshToken
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		newRefresh = tok.RefreshToken
	}

	expiresAt := tok.Expiry.UnixMilli()
	updated, err := m.store.Update(ctx, conversationID, store.Fields{
		AccessToken:  &tok.AccessToken,
		RefreshToken: &newRefresh,
		ExpiresAt:    &expiresAt,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Credential was revoked while the refresh was in flight.
		return nil, fmt.Errorf("%w: %s", ErrNotAuthenticated, conversationID)
	}

	m.obs.RefreshSucceeded(conversationID, tok.Expiry)
	return updated, nil
}

func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"invalid_code",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
