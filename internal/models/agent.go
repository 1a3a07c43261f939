package models

import (
	"encoding/json"
	"time"
)

// Capability represents a single action class an agent token may perform.
type Capability string

const (
	CapabilityRead     Capability = "read"
	CapabilityWrite    Capability = "write"
	CapabilityExecute  Capability = "execute"
	CapabilitySchedule Capability = "schedule"
	CapabilityAdmin    Capability = "admin"
)

// knownCapabilities is the catalogue of capabilities a token may carry.
var knownCapabilities = map[Capability]bool{
	CapabilityRead:     true,
	CapabilityWrite:    true,
	CapabilityExecute:  true,
	CapabilitySchedule: true,
	CapabilityAdmin:    true,
}

// ParseCapability converts a raw string into a Capability. Unknown strings are
// rejected so a typo in a minted token can never widen access.
func ParseCapability(s string) (Capability, bool) {
	c := Capability(s)
	return c, knownCapabilities[c]
}

// PermissionSet is the set of capabilities granted to an agent token.
type PermissionSet map[Capability]struct{}

// NewPermissionSet builds a set from raw strings, reporting the first unknown
// capability name.
func NewPermissionSet(raw []string) (PermissionSet, string, bool) {
	set := make(PermissionSet, len(raw))
	for _, s := range raw {
		c, ok := ParseCapability(s)
		if !ok {
			return nil, s, false
		}
		set[c] = struct{}{}
	}
	return set, "", true
}

// Has reports whether the set grants the capability. Admin implies all others.
func (p PermissionSet) Has(c Capability) bool {
	if _, ok := p[CapabilityAdmin]; ok {
		return true
	}
	_, ok := p[c]
	return ok
}

// Strings returns the capabilities as a sorted-insertion-free string slice,
// suitable for header injection.
func (p PermissionSet) Strings() []string {
	out := make([]string, 0, len(p))
	for c := range p {
		out = append(out, string(c))
	}
	return out
}

// MarshalJSON encodes the set as a JSON array of capability names.
func (p PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Strings())
}

// AgentClaims is the verified payload of a signed agent token.
type AgentClaims struct {
	AgentKey    string        `json:"agent_key"`
	DocumentID  string        `json:"document_id"`
	Permissions PermissionSet `json:"permissions"`
	IssuedAt    time.Time     `json:"iat"`
	ExpiresAt   time.Time     `json:"exp"`
}

// IssueAgentTokenRequest is the body for minting a new agent token.
type IssueAgentTokenRequest struct {
	AgentKey    string    `json:"agent_key" binding:"required"`
	DocumentID  string    `json:"document_id" binding:"required"`
	Permissions []string  `json:"permissions" binding:"required"`
	ExpiresAt   time.Time `json:"expires_at" binding:"required"`
}

// IssueAgentTokenResponse is returned when a token is minted.
type IssueAgentTokenResponse struct {
	Token       string    `json:"token"`
	AgentKey    string    `json:"agent_key"`
	DocumentID  string    `json:"document_id"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}
