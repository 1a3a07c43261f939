package vault

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awkns-projects/rom-gateway/internal/models"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(Config{EncryptionKey: "test-vault-key"}, zap.NewNop())
	require.NoError(t, err)
	return v
}

func TestVault_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	for _, plaintext := range []string{
		"sk-live-abc123",
		"",
		"secret with spaces and unicode ✓",
		strings.Repeat("x", 4096),
	} {
		ct, err := v.Encrypt(plaintext)
		require.NoError(t, err)
		assert.Contains(t, ct, ":")

		got, err := v.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestVault_FreshIVPerCall(t *testing.T) {
	v := newTestVault(t)

	first, err := v.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := v.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, strings.Split(first, ":")[0], strings.Split(second, ":")[0])
}

func TestVault_TamperDetection(t *testing.T) {
	v := newTestVault(t)

	ct, err := v.Encrypt("sk-live-abc123")
	require.NoError(t, err)

	parts := strings.Split(ct, ":")
	raw, err := hex.DecodeString(parts[1])
	require.NoError(t, err)

	// Flip one bit in every byte position; decryption must always fail,
	// never return a different valid-looking string.
	for i := range raw {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01

		_, err := v.Decrypt(parts[0] + ":" + hex.EncodeToString(tampered))
		assert.ErrorIs(t, err, models.ErrDecryptionFailed, "byte %d", i)
	}
}

func TestVault_WrongKey(t *testing.T) {
	v := newTestVault(t)
	other, err := New(Config{EncryptionKey: "a different key"}, zap.NewNop())
	require.NoError(t, err)

	ct, err := v.Encrypt("sk-live-abc123")
	require.NoError(t, err)

	_, err = other.Decrypt(ct)
	assert.ErrorIs(t, err, models.ErrDecryptionFailed)
}

func TestVault_FormatErrors(t *testing.T) {
	v := newTestVault(t)

	valid, err := v.Encrypt("x")
	require.NoError(t, err)

	cases := []string{
		"",
		"nocolonhere",
		strings.ReplaceAll(valid, ":", ""),
		"zz:" + strings.Split(valid, ":")[1],
		strings.Split(valid, ":")[0] + ":zz:extra",
		"abcd:" + strings.Split(valid, ":")[1], // iv too short
		strings.Split(valid, ":")[0] + ":not-hex!",
	}
	for _, token := range cases {
		_, err := v.Decrypt(token)
		assert.ErrorIs(t, err, models.ErrCiphertextFormat, "token %q", token)
	}
}

func TestVault_KeyPrecedence(t *testing.T) {
	rawKey := strings.Repeat("ab", 32)

	t.Run("explicit hex key", func(t *testing.T) {
		v, err := New(Config{EncryptionKey: rawKey, FallbackSecret: "ignored"}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, TierConfigured, v.Tier())
	})

	t.Run("explicit non-hex key is hashed", func(t *testing.T) {
		v, err := New(Config{EncryptionKey: "not hex"}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, TierConfigured, v.Tier())
	})

	t.Run("derived from fallback secret", func(t *testing.T) {
		v, err := New(Config{FallbackSecret: "app-secret"}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, TierDerived, v.Tier())
	})

	t.Run("insecure dev fallback", func(t *testing.T) {
		v, err := New(Config{}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, TierInsecure, v.Tier())
	})

	t.Run("require_key refuses the dev fallback", func(t *testing.T) {
		_, err := New(Config{RequireKey: true}, zap.NewNop())
		assert.ErrorIs(t, err, models.ErrConfiguration)
	})

	t.Run("same fallback secret decrypts across instances", func(t *testing.T) {
		a, err := New(Config{FallbackSecret: "shared"}, zap.NewNop())
		require.NoError(t, err)
		b, err := New(Config{FallbackSecret: "shared"}, zap.NewNop())
		require.NoError(t, err)

		ct, err := a.Encrypt("portable")
		require.NoError(t, err)
		got, err := b.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, "portable", got)
	})
}
