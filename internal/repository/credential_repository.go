package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/awkns-projects/rom-gateway/internal/models"
)

// CredentialRepository stores vault ciphertext keyed by (user_id, provider).
// Plaintext never reaches this layer.
type CredentialRepository struct {
	db *sqlx.DB
}

func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Upsert(ctx context.Context, userID, provider, ciphertext string) error {
	query := `
		INSERT INTO provider_credentials (user_id, provider, ciphertext, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, provider)
		DO UPDATE SET ciphertext = EXCLUDED.ciphertext, updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query, userID, provider, ciphertext, time.Now())
	return err
}

func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]models.ProviderCredential, error) {
	query := `
		SELECT user_id, provider, ciphertext, updated_at
		FROM provider_credentials
		WHERE user_id = $1
		ORDER BY provider`

	var rows []models.ProviderCredential
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete clears the named providers for a user. Absent rows are ignored, so
// the operation is idempotent.
func (r *CredentialRepository) Delete(ctx context.Context, userID string, providers []string) error {
	query := `DELETE FROM provider_credentials WHERE user_id = $1 AND provider = ANY($2)`
	_, err := r.db.ExecContext(ctx, query, userID, pq.Array(providers))
	return err
}
