// Package gateway implements the trust resolver in front of every request:
// an ordered list of predicate rules evaluated top to bottom, where the first
// matching rule produces the request's decision. Downstream handlers read
// identity exclusively from that decision and never re-derive trust.
package gateway

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/ratelimit"
	"github.com/awkns-projects/rom-gateway/internal/services"
)

// Outcome is the kind of decision the dispatcher produced.
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeRedirect
	OutcomeReject
)

// Identity and rate-limit headers the gateway injects or returns.
const (
	HeaderAgentToken = "X-Agent-Token"
	QueryAgentToken  = "agent_token"

	HeaderAgentAuth        = "x-agent-auth"
	HeaderAgentDocumentID  = "x-agent-document-id"
	HeaderAgentKey         = "x-agent-key"
	HeaderAgentPermissions = "x-agent-permissions"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRefreshNeeded      = "X-Agent-Token-Refresh-Needed"
)

// Decision is produced fresh for every request and never persisted.
type Decision struct {
	Outcome  Outcome
	Rule     string
	Identity models.Identity

	// Headers are attached to the response (rate-limit budget, refresh
	// advisory). Identity injection is derived from Identity by the HTTP
	// adapter.
	Headers map[string]string

	// Redirect target when Outcome is OutcomeRedirect.
	Target string

	// Status, Code and Message describe a rejection.
	Status  int
	Code    string
	Message string

	// Immediate short-circuits the handler chain even on Allow (CORS
	// preflight).
	Immediate bool
}

// RequestInfo is the slice of an inbound request the rules consult.
type RequestInfo struct {
	Method        string
	Path          string
	Host          string
	Referer       string
	RequestURI    string
	AgentToken    string
	SessionCookie string
	CookiePresent bool
}

// TokenVerifier validates agent tokens.
type TokenVerifier interface {
	Verify(token string) (*services.VerifyResult, error)
}

// SessionParser validates session cookies.
type SessionParser interface {
	Parse(token string) (*models.SessionClaims, error)
}

// Config holds the routing surface the rules evaluate against.
type Config struct {
	// AgentRoutes are path prefixes agents may call with an agent token.
	AgentRoutes []string `mapstructure:"agent_routes"`
	// BypassPaths pass through unauthenticated (health, liveness, identity
	// provider's own routes).
	BypassPaths []string `mapstructure:"bypass_paths"`
	// TrustedHosts bypass interactive auth entirely. Development only; keep
	// empty in production.
	TrustedHosts []string `mapstructure:"trusted_hosts"`
	// ProtectedRoutes require a session; anything else is public.
	ProtectedRoutes []string `mapstructure:"protected_routes"`
	// SafePaths stay reachable when session parsing itself is broken.
	SafePaths []string `mapstructure:"safe_paths"`

	LoginPath    string `mapstructure:"login_path"`
	RegisterPath string `mapstructure:"register_path"`
	GuestPath    string `mapstructure:"guest_path"`
	HomePath     string `mapstructure:"home_path"`
}

type rule struct {
	name string
	eval func(*evalContext) *Decision
}

type evalContext struct {
	ctx        context.Context
	req        *RequestInfo
	session    *models.SessionClaims
	sessionErr error
}

// Dispatcher evaluates the rule sequence. It is safe for concurrent use; all
// per-request state lives in the evaluation context.
type Dispatcher struct {
	cfg      Config
	verifier TokenVerifier
	limiter  ratelimit.Limiter
	sessions SessionParser
	logger   *zap.Logger
	rules    []rule
}

func NewDispatcher(cfg Config, verifier TokenVerifier, limiter ratelimit.Limiter, sessions SessionParser, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		cfg:      cfg,
		verifier: verifier,
		limiter:  limiter,
		sessions: sessions,
		logger:   logger,
	}
	d.rules = []rule{
		{"preflight", d.preflightRule},
		{"bypass_path", d.bypassRule},
		{"agent_auth", d.agentAuthRule},
		{"trusted_host", d.trustedHostRule},
		{"redirect_loop_guard", d.redirectLoopRule},
		{"session_config_guard", d.sessionConfigRule},
		{"anonymous", d.anonymousRule},
		{"authenticated", d.authenticatedRule},
	}
	return d
}

// Evaluate runs the rules in order and returns the first decision. This
// component fronts every request, so an unexpected panic in a rule resolves
// to a safe redirect home instead of crashing the pipeline.
func (d *Dispatcher) Evaluate(ctx context.Context, req *RequestInfo) (decision *Decision) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("gateway rule panicked, falling back to safe redirect",
				zap.Any("panic", r),
				zap.String("path", req.Path))
			decision = &Decision{
				Outcome:  OutcomeRedirect,
				Rule:     "panic_fallback",
				Identity: models.AnonymousIdentity(),
				Target:   d.cfg.HomePath,
			}
		}
	}()

	ec := &evalContext{ctx: ctx, req: req}
	if req.CookiePresent {
		ec.session, ec.sessionErr = d.sessions.Parse(req.SessionCookie)
		if ec.sessionErr != nil && !errors.Is(ec.sessionErr, models.ErrConfiguration) {
			// An invalid or expired session is treated as no session, not as
			// an error condition.
			ec.session, ec.sessionErr = nil, nil
		}
	}

	for _, r := range d.rules {
		if dec := r.eval(ec); dec != nil {
			dec.Rule = r.name
			return dec
		}
	}

	// Every request should have matched anonymous or authenticated; allow to
	// the public surface as the safe default.
	return &Decision{
		Outcome:  OutcomeAllow,
		Rule:     "default_allow",
		Identity: models.AnonymousIdentity(),
	}
}

func allowAnonymous() *Decision {
	return &Decision{Outcome: OutcomeAllow, Identity: models.AnonymousIdentity()}
}

func reject(status int, code, message string) *Decision {
	return &Decision{
		Outcome:  OutcomeReject,
		Identity: models.AnonymousIdentity(),
		Status:   status,
		Code:     code,
		Message:  message,
	}
}

func redirect(target string) *Decision {
	return &Decision{
		Outcome:  OutcomeRedirect,
		Identity: models.AnonymousIdentity(),
		Status:   http.StatusTemporaryRedirect,
		Target:   target,
	}
}
