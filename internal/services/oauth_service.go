package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/vault"
)

// OAuthStore persists connections. Tokens arrive already encrypted.
type OAuthStore interface {
	Upsert(ctx context.Context, conn *models.OAuthConnection) error
	ListActive(ctx context.Context, documentID, userID string) ([]models.OAuthConnection, error)
	Deactivate(ctx context.Context, documentID, provider, userID string) error
}

// OAuthService manages OAuth connection lifecycle. The provider exchange
// itself happens upstream; this service only persists and retrieves grants,
// passing tokens through the vault so they are never stored in plaintext.
// Token refresh is the caller's job: a refreshed grant is simply saved again.
type OAuthService struct {
	store  OAuthStore
	vault  *vault.Vault
	logger *zap.Logger
}

func NewOAuthService(store OAuthStore, v *vault.Vault, logger *zap.Logger) *OAuthService {
	return &OAuthService{store: store, vault: v, logger: logger}
}

// Save upserts a connection from a completed provider callback exchange.
func (s *OAuthService) Save(ctx context.Context, userID string, req *models.SaveConnectionRequest) (*models.OAuthConnection, error) {
	accessCT, err := s.vault.Encrypt(req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}
	refreshCT := ""
	if req.RefreshToken != "" {
		if refreshCT, err = s.vault.Encrypt(req.RefreshToken); err != nil {
			return nil, fmt.Errorf("encrypting refresh token: %w", err)
		}
	}

	conn := &models.OAuthConnection{
		ID:           uuid.New().String(),
		UserID:       userID,
		DocumentID:   req.DocumentID,
		Provider:     req.Provider,
		AccessToken:  accessCT,
		RefreshToken: refreshCT,
		ExpiresAt:    req.ExpiresAt,
		Scopes:       req.Scopes,
		IsActive:     true,
		UpdatedAt:    time.Now(),
	}
	if err := s.store.Upsert(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// GetActive returns the active connections for a document with tokens
// decrypted. A row whose tokens cannot be decrypted is logged and skipped
// rather than failing the whole read.
func (s *OAuthService) GetActive(ctx context.Context, documentID, userID string) ([]models.OAuthConnection, error) {
	rows, err := s.store.ListActive(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.OAuthConnection, 0, len(rows))
	for _, row := range rows {
		access, err := s.vault.Decrypt(row.AccessToken)
		if err != nil {
			s.logger.Error("skipping connection with undecryptable access token",
				zap.String("connection_id", row.ID),
				zap.String("provider", row.Provider),
				zap.Error(err))
			continue
		}
		row.AccessToken = access
		if row.RefreshToken != "" {
			refresh, err := s.vault.Decrypt(row.RefreshToken)
			if err != nil {
				s.logger.Error("dropping undecryptable refresh token",
					zap.String("connection_id", row.ID),
					zap.String("provider", row.Provider),
					zap.Error(err))
				row.RefreshToken = ""
			} else {
				row.RefreshToken = refresh
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// Disconnect deactivates a connection. The row is kept for the audit trail.
func (s *OAuthService) Disconnect(ctx context.Context, documentID, provider, userID string) error {
	return s.store.Deactivate(ctx, documentID, provider, userID)
}
