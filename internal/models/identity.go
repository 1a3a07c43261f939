package models

// IdentityKind discriminates the principal kinds the gateway resolves.
type IdentityKind string

const (
	IdentityAgent IdentityKind = "agent"
	IdentityUser  IdentityKind = "user"
	IdentityNone  IdentityKind = "none"
)

// Identity is the principal resolved for a request. Exactly one of Agent or
// User is set depending on Kind.
type Identity struct {
	Kind  IdentityKind
	Agent *AgentClaims
	User  *SessionClaims
}

// AnonymousIdentity is the identity attached when no principal is resolved.
func AnonymousIdentity() Identity {
	return Identity{Kind: IdentityNone}
}

// SessionClaims is the verified payload of an interactive session cookie.
type SessionClaims struct {
	UserID string `json:"sub"`
	Email  string `json:"email,omitempty"`
	Guest  bool   `json:"guest"`
}
