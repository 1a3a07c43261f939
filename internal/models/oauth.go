package models

import (
	"time"

	"github.com/lib/pq"
)

// OAuthConnection is a stored third-party authorization grant tied to one
// document and provider. AccessToken and RefreshToken hold plaintext only in
// memory; at rest they are vault ciphertext.
type OAuthConnection struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	DocumentID   string         `db:"document_id" json:"document_id"`
	Provider     string         `db:"provider" json:"provider"`
	AccessToken  string         `db:"access_token" json:"-"`
	RefreshToken string         `db:"refresh_token" json:"-"`
	ExpiresAt    *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	Scopes       pq.StringArray `db:"scopes" json:"scopes"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// IsExpired is derived at read time; expiry is never written back.
func (c *OAuthConnection) IsExpired() bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now())
}

// SaveConnectionRequest is the body posted by the provider callback exchange.
type SaveConnectionRequest struct {
	DocumentID   string     `json:"document_id" binding:"required"`
	Provider     string     `json:"provider" binding:"required"`
	AccessToken  string     `json:"access_token" binding:"required"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Scopes       []string   `json:"scopes"`
}

// ConnectionView is the API representation of a connection; tokens are never
// serialized outward.
type ConnectionView struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	Provider   string     `json:"provider"`
	Scopes     []string   `json:"scopes"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsExpired  bool       `json:"is_expired"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// View converts a connection to its outward representation.
func (c *OAuthConnection) View() ConnectionView {
	return ConnectionView{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		Provider:   c.Provider,
		Scopes:     c.Scopes,
		ExpiresAt:  c.ExpiresAt,
		IsExpired:  c.IsExpired(),
		UpdatedAt:  c.UpdatedAt,
	}
}
