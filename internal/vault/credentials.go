package vault

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/awkns-projects/rom-gateway/internal/models"
)

// CredentialStore persists encrypted provider secrets keyed by
// (userID, provider).
type CredentialStore interface {
	Upsert(ctx context.Context, userID, provider, ciphertext string) error
	ListByUser(ctx context.Context, userID string) ([]models.ProviderCredential, error)
	Delete(ctx context.Context, userID string, providers []string) error
}

// CredentialService is the vault's storage-facing surface: it encrypts on the
// way in, decrypts on the way out, and never exposes ciphertext to callers.
type CredentialService struct {
	vault  *Vault
	store  CredentialStore
	logger *zap.Logger
}

func NewCredentialService(v *Vault, store CredentialStore, logger *zap.Logger) *CredentialService {
	return &CredentialService{vault: v, store: store, logger: logger}
}

// SaveKeys encrypts and upserts each provided key. Providers absent from the
// map are left untouched. A write either fully succeeds per field or fails;
// nothing is stored in plaintext.
func (s *CredentialService) SaveKeys(ctx context.Context, userID string, keys map[string]string) error {
	for provider, plaintext := range keys {
		ct, err := s.vault.Encrypt(plaintext)
		if err != nil {
			return fmt.Errorf("encrypting key for provider %s: %w", provider, err)
		}
		if err := s.store.Upsert(ctx, userID, provider, ct); err != nil {
			return fmt.Errorf("storing key for provider %s: %w", provider, err)
		}
	}
	return nil
}

// HasKeys returns presence flags only; neither plaintext nor ciphertext
// leaves the vault.
func (s *CredentialService) HasKeys(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(rows))
	for _, row := range rows {
		present[row.Provider] = row.Ciphertext != ""
	}
	return present, nil
}

// GetKeys decrypts every stored key for the user. A field that fails to
// decrypt is logged and omitted; the remaining fields still decrypt normally.
func (s *CredentialService) GetKeys(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Ciphertext == "" {
			continue
		}
		plain, err := s.vault.Decrypt(row.Ciphertext)
		if err != nil {
			s.logger.Error("skipping undecryptable credential",
				zap.String("user_id", userID),
				zap.String("provider", row.Provider),
				zap.Error(err))
			continue
		}
		keys[row.Provider] = plain
	}
	return keys, nil
}

// DeleteKeys clears the named providers. Deleting an absent provider is a
// no-op.
func (s *CredentialService) DeleteKeys(ctx context.Context, userID string, providers []string) error {
	if len(providers) == 0 {
		return nil
	}
	return s.store.Delete(ctx, userID, providers)
}
