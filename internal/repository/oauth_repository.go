package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/awkns-projects/rom-gateway/internal/models"
)

// OAuthConnectionRepository persists per-document OAuth grants. Rows are
// deactivated rather than deleted so the connection history survives as an
// audit trail.
type OAuthConnectionRepository struct {
	db *sqlx.DB
}

func NewOAuthConnectionRepository(db *sqlx.DB) *OAuthConnectionRepository {
	return &OAuthConnectionRepository{db: db}
}

// Upsert inserts or refreshes the grant for (document, provider, user). A
// re-save reactivates a previously disconnected provider.
func (r *OAuthConnectionRepository) Upsert(ctx context.Context, conn *models.OAuthConnection) error {
	query := `
		INSERT INTO oauth_connections (
			id, user_id, document_id, provider, access_token, refresh_token,
			expires_at, scopes, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
		)
		ON CONFLICT (user_id, document_id, provider)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			scopes = EXCLUDED.scopes,
			is_active = TRUE,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		conn.ID,
		conn.UserID,
		conn.DocumentID,
		conn.Provider,
		conn.AccessToken,
		conn.RefreshToken,
		conn.ExpiresAt,
		conn.Scopes,
		conn.IsActive,
		time.Now(),
	)
	return err
}

// ListActive returns only is_active rows; expiry is derived by the caller at
// read time, never stored.
func (r *OAuthConnectionRepository) ListActive(ctx context.Context, documentID, userID string) ([]models.OAuthConnection, error) {
	query := `
		SELECT id, user_id, document_id, provider, access_token, refresh_token,
		       expires_at, scopes, is_active, created_at, updated_at
		FROM oauth_connections
		WHERE document_id = $1 AND user_id = $2 AND is_active = TRUE
		ORDER BY provider`

	var rows []models.OAuthConnection
	if err := r.db.SelectContext(ctx, &rows, query, documentID, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

// Deactivate flips is_active off for a grant.
func (r *OAuthConnectionRepository) Deactivate(ctx context.Context, documentID, provider, userID string) error {
	query := `
		UPDATE oauth_connections
		SET is_active = FALSE, updated_at = $4
		WHERE document_id = $1 AND provider = $2 AND user_id = $3 AND is_active = TRUE`

	result, err := r.db.ExecContext(ctx, query, documentID, provider, userID, time.Now())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrConnectionNotFound
	}
	return nil
}
