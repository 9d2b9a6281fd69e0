// Package store persists per-conversation OAuth credentials.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/botworks/zohobridge/internal/db/models"
)

// Store is the credential repository backed by the shared database.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a credential store.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Fields carries a partial update; nil members are left untouched.
type Fields struct {
	ExternalUserID *string
	AccessToken    *string
	RefreshToken   *string
	ExpiresAt      *int64
}

// Upsert creates or fully overwrites the credential row for a
// conversation. ExpiresAt is computed from lifetimeSeconds at write time.
func (s *Store) Upsert(ctx context.Context, conversationID, externalUserID, accessToken, refreshToken string, lifetimeSeconds int64) (*models.Credential, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	now := s.now()
	cred := models.Credential{
		ConversationID: conversationID,
		ExternalUserID: externalUserID,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		ExpiresAt:      now.UnixMilli() + lifetimeSeconds*1000,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Credential
		err := tx.First(&existing, "conversation_id = ?", conversationID).Error
		switch {
		case err == nil:
			cred.CreatedAt = existing.CreatedAt
			return tx.Save(&cred).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			cred.CreatedAt = now
			return tx.Create(&cred).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("upsert credential: %w", err)
	}
	return &cred, nil
}

// Get returns the credential for a conversation, or nil when none is
// stored. Absence is not an error.
func (s *Store) Get(ctx context.Context, conversationID string) (*models.Credential, error) {
	var cred models.Credential
	err := s.db.WithContext(ctx).First(&cred, "conversation_id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return &cred, nil
}

// Update merges the given fields into an existing row and bumps
// UpdatedAt. Returns nil when no row exists; callers must check.
func (s *Store) Update(ctx context.Context, conversationID string, fields Fields) (*models.Credential, error) {
	values := map[string]interface{}{
		"updated_at": s.now(),
	}
	if fields.ExternalUserID != nil {
		values["external_user_id"] = *fields.ExternalUserID
	}
	if fields.AccessToken != nil {
		values["access_token"] = *fields.AccessToken
	}
	if fields.RefreshToken != nil {
		values["refresh_token"] = *fields.RefreshToken
	}
	if fields.ExpiresAt != nil {
		values["expires_at"] = *fields.ExpiresAt
	}

	res := s.db.WithContext(ctx).Model(&models.Credential{}).
		Where("conversation_id = ?", conversationID).
		Updates(values)
	if res.Error != nil {
		return nil, fmt.Errorf("update credential: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.Get(ctx, conversationID)
}

// Delete removes the credential row. Reports whether a row existed.
func (s *Store) Delete(ctx context.Context, conversationID string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.Credential{}, "conversation_id = ?", conversationID)
	if res.Error != nil {
		return false, fmt.Errorf("delete credential: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
