package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/awkns-projects/rom-gateway/internal/models"
)

// ivSize is the nonce length used for stored ciphertext. Sixteen bytes keeps
// the stored format compatible with the hex(iv):hex(data) layout used across
// the platform.
const ivSize = 16

// devFallbackSecret seeds the last-resort key when nothing is configured. It
// must never survive into a production deployment; New refuses it when
// RequireKey is set.
const devFallbackSecret = "rom-gateway-insecure-dev-key"

// KeyTier records which rung of the key-derivation precedence produced the
// active encryption key.
type KeyTier string

const (
	TierConfigured KeyTier = "configured"
	TierDerived    KeyTier = "derived"
	TierInsecure   KeyTier = "insecure-dev-fallback"
)

// Config holds the key material inputs for the vault.
type Config struct {
	// EncryptionKey is the explicit key: 64 hex chars for a raw 32-byte key,
	// any other non-empty value is hashed into one.
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackSecret is a broader application secret used to derive a key
	// when no explicit key is configured.
	FallbackSecret string `mapstructure:"fallback_secret"`
	// RequireKey makes startup fail instead of degrading to the insecure
	// development key.
	RequireKey bool `mapstructure:"require_key"`
}

// Vault encrypts and decrypts provider secrets with AES-256-GCM. The key is
// resolved once at construction; the chosen tier is logged exactly once.
type Vault struct {
	aead cipher.AEAD
	tier KeyTier
}

// New resolves the encryption key through the configured precedence and
// builds the cipher.
func New(cfg Config, logger *zap.Logger) (*Vault, error) {
	key, tier := resolveKey(cfg)
	if tier == TierInsecure {
		if cfg.RequireKey {
			return nil, fmt.Errorf("%w: no vault encryption key or fallback secret", models.ErrConfiguration)
		}
		logger.Warn("vault is using the INSECURE development key; configure vault.encryption_key before storing real secrets")
	} else {
		logger.Info("vault encryption key resolved", zap.String("tier", string(tier)))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing vault cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("initializing vault cipher: %w", err)
	}

	return &Vault{aead: aead, tier: tier}, nil
}

func resolveKey(cfg Config) ([]byte, KeyTier) {
	if cfg.EncryptionKey != "" {
		if raw, err := hex.DecodeString(cfg.EncryptionKey); err == nil && len(raw) == 32 {
			return raw, TierConfigured
		}
		sum := sha256.Sum256([]byte(cfg.EncryptionKey))
		return sum[:], TierConfigured
	}
	if cfg.FallbackSecret != "" {
		sum := sha256.Sum256([]byte(cfg.FallbackSecret))
		return sum[:], TierDerived
	}
	sum := sha256.Sum256([]byte(devFallbackSecret))
	return sum[:], TierInsecure
}

// Tier reports which precedence rung produced the active key.
func (v *Vault) Tier() KeyTier {
	return v.tier
}

// Encrypt seals the plaintext under a fresh random IV and returns
// hex(iv):hex(ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}
	ct := v.aead.Seal(nil, iv, []byte(plaintext), nil)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt. A token without exactly two hex segments fails
// with ErrCiphertextFormat; a wrong key or tampered data fails with
// ErrDecryptionFailed. Corrupted data is never returned as plaintext.
func (v *Vault) Decrypt(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return "", models.ErrCiphertextFormat
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", models.ErrCiphertextFormat
	}
	ct, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", models.ErrCiphertextFormat
	}
	plain, err := v.aead.Open(nil, iv, ct, nil)
	if err != nil {
		return "", models.ErrDecryptionFailed
	}
	return string(plain), nil
}
