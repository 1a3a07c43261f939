package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/awkns-projects/rom-gateway/internal/models"
)

// VerifyResult is the outcome of a successful token verification.
// NeedsRefresh signals that the token is still valid but close enough to
// expiry that the caller should advertise a refresh hint.
type VerifyResult struct {
	Claims       *models.AgentClaims
	NeedsRefresh bool
}

// AgentTokenService verifies and mints the signed tokens deployed agents use
// to call back into the platform. Verification is pure: no logging, no side
// effects.
type AgentTokenService struct {
	secret       []byte
	refreshGrace time.Duration
	now          func() time.Time
}

func NewAgentTokenService(secret string, refreshGrace time.Duration) *AgentTokenService {
	return &AgentTokenService{
		secret:       []byte(secret),
		refreshGrace: refreshGrace,
		now:          time.Now,
	}
}

// Verify checks integrity, expiry and payload shape of an agent token.
// Failures map onto the gateway taxonomy: ErrTokenExpired for a past hard
// expiry (checked even when the signature is bad), ErrInvalidSignature for
// any integrity failure, ErrMalformedClaims for a well-signed token missing
// required fields.
func (s *AgentTokenService) Verify(tokenString string) (*VerifyResult, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		// An expired token is reported as expired regardless of signature
		// validity.
		if exp, ok := unverifiedExpiry(tokenString); ok && exp.Before(s.now()) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrInvalidSignature
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, models.ErrInvalidSignature
	}

	agentClaims, err := claimsFromMap(claims)
	if err != nil {
		return nil, err
	}

	needsRefresh := agentClaims.ExpiresAt.Sub(s.now()) <= s.refreshGrace
	return &VerifyResult{Claims: agentClaims, NeedsRefresh: needsRefresh}, nil
}

func claimsFromMap(claims jwt.MapClaims) (*models.AgentClaims, error) {
	agentKey, _ := claims["agent_key"].(string)
	documentID, _ := claims["document_id"].(string)
	if agentKey == "" || documentID == "" {
		return nil, models.ErrMalformedClaims
	}

	rawPerms, ok := claims["permissions"].([]interface{})
	if !ok {
		return nil, models.ErrMalformedClaims
	}
	names := make([]string, 0, len(rawPerms))
	for _, p := range rawPerms {
		name, ok := p.(string)
		if !ok {
			return nil, models.ErrMalformedClaims
		}
		names = append(names, name)
	}
	perms, unknown, ok := models.NewPermissionSet(names)
	if !ok {
		return nil, fmt.Errorf("%w: unknown capability %q", models.ErrMalformedClaims, unknown)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, models.ErrMalformedClaims
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, models.ErrMalformedClaims
	}

	return &models.AgentClaims{
		AgentKey:    agentKey,
		DocumentID:  documentID,
		Permissions: perms,
		IssuedAt:    iat.Time,
		ExpiresAt:   exp.Time,
	}, nil
}

// Issue mints a new agent token. Issuing happens on an operator-guarded
// endpoint, outside the per-request decision path.
func (s *AgentTokenService) Issue(req *models.IssueAgentTokenRequest) (string, error) {
	if _, unknown, ok := models.NewPermissionSet(req.Permissions); !ok {
		return "", fmt.Errorf("%w: unknown capability %q", models.ErrMalformedClaims, unknown)
	}
	now := s.now()
	if !req.ExpiresAt.After(now) {
		return "", fmt.Errorf("%w: expires_at must be in the future", models.ErrMalformedClaims)
	}

	claims := jwt.MapClaims{
		"agent_key":   req.AgentKey,
		"document_id": req.DocumentID,
		"permissions": req.Permissions,
		"iat":         now.Unix(),
		"exp":         req.ExpiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ClaimedAgentKey extracts the unverified agent_key from a token for denied
// attempt logging. Returns "unknown" when the token is not even decodable.
func ClaimedAgentKey(tokenString string) string {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "unknown"
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "unknown"
	}
	if key, ok := claims["agent_key"].(string); ok && key != "" {
		return key
	}
	return "unknown"
}

func unverifiedExpiry(tokenString string) (time.Time, bool) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
