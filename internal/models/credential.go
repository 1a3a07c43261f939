package models

import "time"

// ProviderCredential is one encrypted provider secret owned by a user.
type ProviderCredential struct {
	UserID     string    `db:"user_id"`
	Provider   string    `db:"provider"`
	Ciphertext string    `db:"ciphertext"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// SaveKeysRequest carries plaintext provider keys to store. Providers absent
// from the map are left untouched (partial update).
type SaveKeysRequest struct {
	Keys map[string]string `json:"keys" binding:"required"`
}

// DeleteKeysRequest names the providers whose keys should be cleared.
type DeleteKeysRequest struct {
	Providers []string `json:"providers" binding:"required"`
}
