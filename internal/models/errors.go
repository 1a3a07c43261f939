package models

import "errors"

var (
	// Token verification
	ErrMissingToken     = errors.New("agent token is missing")
	ErrInvalidSignature = errors.New("agent token signature is invalid")
	ErrTokenExpired     = errors.New("agent token is expired")
	ErrMalformedClaims  = errors.New("agent token payload is malformed")

	// Authorization
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrForbidden        = errors.New("insufficient permissions")
	ErrDocumentMismatch = errors.New("token is scoped to a different document")

	// Credential vault
	ErrCiphertextFormat = errors.New("ciphertext is not in iv:data hex format")
	ErrDecryptionFailed = errors.New("ciphertext could not be decrypted")

	// Startup / configuration
	ErrConfiguration = errors.New("required secret is not configured")

	// Storage
	ErrConnectionNotFound = errors.New("oauth connection not found")
)

// ErrorCode maps a gateway error to its stable machine-readable code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrMalformedClaims):
		return "malformed_claims"
	case errors.Is(err, ErrRateLimited):
		return "rate_limit_exceeded"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrDocumentMismatch):
		return "document_mismatch"
	case errors.Is(err, ErrCiphertextFormat):
		return "ciphertext_format"
	case errors.Is(err, ErrDecryptionFailed):
		return "decryption_failed"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrConnectionNotFound):
		return "connection_not_found"
	default:
		return "internal_error"
	}
}
