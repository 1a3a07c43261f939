package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/awkns-projects/rom-gateway/internal/models"
)

// SessionCookieName is the cookie carrying the interactive session token.
const SessionCookieName = "rom_session"

// SessionService validates the session cookie minted by the identity
// provider. It shares nothing with agent tokens: separate secret, separate
// claim shape.
type SessionService struct {
	secret string
}

func NewSessionService(secret string) *SessionService {
	return &SessionService{secret: secret}
}

// Parse validates a session token. A missing secret is a configuration
// error, distinct from an invalid or expired token, so the gateway can tell
// "site misconfigured" apart from "user not signed in".
func (s *SessionService) Parse(tokenString string) (*models.SessionClaims, error) {
	if s.secret == "" {
		return nil, fmt.Errorf("%w: session secret is empty", models.ErrConfiguration)
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, models.ErrInvalidSignature
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, models.ErrMalformedClaims
	}
	email, _ := claims["email"].(string)
	guest, _ := claims["guest"].(bool)

	return &models.SessionClaims{UserID: sub, Email: email, Guest: guest}, nil
}

// Issue mints a session token. Used by the guest-provisioning flow and by
// tests; interactive sign-in tokens come from the identity provider.
func (s *SessionService) Issue(userID string, guest bool, ttl time.Duration) (string, error) {
	if s.secret == "" {
		return "", fmt.Errorf("%w: session secret is empty", models.ErrConfiguration)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"guest": guest,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}
