package gateway

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/services"
)

// preflightRule answers CORS preflight probes immediately with an allow-all
// response; no further rules run.
func (d *Dispatcher) preflightRule(ec *evalContext) *Decision {
	if ec.req.Method != http.MethodOptions {
		return nil
	}
	return &Decision{
		Outcome:  OutcomeAllow,
		Identity: models.AnonymousIdentity(),
		Headers: map[string]string{
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": "GET, POST, PUT, PATCH, DELETE, OPTIONS",
			"Access-Control-Allow-Headers": "Authorization, Content-Type, " + HeaderAgentToken,
		},
		Status:    http.StatusNoContent,
		Immediate: true,
	}
}

// bypassRule passes health checks and the identity provider's own routes
// through unauthenticated.
func (d *Dispatcher) bypassRule(ec *evalContext) *Decision {
	if !pathMatchesAny(ec.req.Path, d.cfg.BypassPaths) {
		return nil
	}
	return allowAnonymous()
}

// agentAuthRule handles agent-capable endpoints carrying a token: verify,
// rate limit, then allow with injected identity. Endpoints without a token
// fall through to session resolution since some agent routes also accept
// interactive sessions.
func (d *Dispatcher) agentAuthRule(ec *evalContext) *Decision {
	if !pathMatchesAny(ec.req.Path, d.cfg.AgentRoutes) || ec.req.AgentToken == "" {
		return nil
	}

	result, err := d.verifier.Verify(ec.req.AgentToken)
	if err != nil {
		d.logger.Warn("agent auth denied",
			zap.String("agent_key", services.ClaimedAgentKey(ec.req.AgentToken)),
			zap.String("path", ec.req.Path),
			zap.String("code", models.ErrorCode(err)))
		return reject(http.StatusUnauthorized, models.ErrorCode(err), "invalid agent authentication")
	}
	claims := result.Claims

	headers := map[string]string{}
	rl, err := d.limiter.Check(ec.ctx, claims.AgentKey)
	if err != nil {
		// A broken limiter backend must not take down verified agents; the
		// request proceeds without a budget header.
		d.logger.Error("rate limit check failed, admitting request",
			zap.String("agent_key", claims.AgentKey),
			zap.Error(err))
	} else {
		headers[HeaderRateLimitLimit] = strconv.Itoa(rl.Limit)
		headers[HeaderRateLimitRemaining] = strconv.Itoa(rl.Remaining)
		headers[HeaderRateLimitReset] = strconv.FormatInt(rl.ResetAt.Unix(), 10)
		if !rl.Allowed {
			d.logger.Warn("agent rate limited",
				zap.String("agent_key", claims.AgentKey),
				zap.Int("limit", rl.Limit))
			dec := reject(http.StatusTooManyRequests, "rate_limit_exceeded", "agent request budget exhausted")
			dec.Headers = headers
			return dec
		}
	}
	if result.NeedsRefresh {
		headers[HeaderRefreshNeeded] = "true"
	}

	d.logger.Info("agent auth allowed",
		zap.String("agent_key", claims.AgentKey),
		zap.String("document_id", claims.DocumentID),
		zap.String("path", ec.req.Path))

	return &Decision{
		Outcome:  OutcomeAllow,
		Identity: models.Identity{Kind: models.IdentityAgent, Agent: claims},
		Headers:  headers,
	}
}

// trustedHostRule allows configured development/tunnel hosts through without
// any further checks and without identity.
func (d *Dispatcher) trustedHostRule(ec *evalContext) *Decision {
	if !hostMatchesAny(ec.req.Host, d.cfg.TrustedHosts) {
		return nil
	}
	return allowAnonymous()
}

// redirectLoopRule lets a request through once when it was just redirected
// from the login or guest flow, so a broken identity provider cannot bounce
// the browser forever.
func (d *Dispatcher) redirectLoopRule(ec *evalContext) *Decision {
	if ec.req.Referer == "" {
		return nil
	}
	ref, err := url.Parse(ec.req.Referer)
	if err != nil {
		return nil
	}
	if strings.HasPrefix(ref.Path, d.cfg.LoginPath) || strings.HasPrefix(ref.Path, d.cfg.GuestPath) {
		return allowAnonymous()
	}
	return nil
}

// sessionConfigRule handles the case where the session cookie cannot even be
// parsed because the gateway itself is misconfigured. Safe paths stay up so
// the whole site does not go dark; everything else lands on home with a
// diagnostic flag.
func (d *Dispatcher) sessionConfigRule(ec *evalContext) *Decision {
	if ec.sessionErr == nil {
		return nil
	}
	if pathMatchesAny(ec.req.Path, d.cfg.SafePaths) {
		return allowAnonymous()
	}
	return redirect(d.cfg.HomePath + "?auth_error=session_config")
}

// anonymousRule resolves requests with no session: public routes pass,
// protected routes bounce to login with the original URL preserved.
func (d *Dispatcher) anonymousRule(ec *evalContext) *Decision {
	if ec.session != nil {
		return nil
	}
	if !pathMatchesAny(ec.req.Path, d.cfg.ProtectedRoutes) {
		return allowAnonymous()
	}
	target := d.cfg.LoginPath + "?callbackUrl=" + url.QueryEscape(ec.req.RequestURI)
	return redirect(target)
}

// authenticatedRule attaches the session identity. A signed-in (non-guest)
// user hitting the login or registration page is sent to the app instead.
func (d *Dispatcher) authenticatedRule(ec *evalContext) *Decision {
	if ec.session == nil {
		return nil
	}
	if !ec.session.Guest &&
		(strings.HasPrefix(ec.req.Path, d.cfg.LoginPath) || strings.HasPrefix(ec.req.Path, d.cfg.RegisterPath)) {
		return redirect(d.cfg.HomePath)
	}
	return &Decision{
		Outcome:  OutcomeAllow,
		Identity: models.Identity{Kind: models.IdentityUser, User: ec.session},
	}
}

// IdentityHeaders renders the injected headers for a decision's identity.
// Only agent identities are advertised to downstream handlers as headers.
func IdentityHeaders(identity models.Identity) map[string]string {
	if identity.Kind != models.IdentityAgent || identity.Agent == nil {
		return nil
	}
	perms, _ := json.Marshal(identity.Agent.Permissions.Strings())
	return map[string]string{
		HeaderAgentAuth:        "verified",
		HeaderAgentKey:         identity.Agent.AgentKey,
		HeaderAgentDocumentID:  identity.Agent.DocumentID,
		HeaderAgentPermissions: string(perms),
	}
}

func pathMatchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if path == p {
			return true
		}
		// "/" only matches exactly; as a prefix it would swallow every path.
		if p != "/" && strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

// hostMatchesAny compares the request host against configured patterns.
// Patterns may be exact ("localhost:3000") or wildcard ("*.ngrok-free.app");
// ports are ignored for wildcard patterns.
func hostMatchesAny(host string, patterns []string) bool {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if host == p || hostname == p {
			return true
		}
		if strings.HasPrefix(p, "*.") {
			suffix := p[1:] // ".domain.tld"
			if strings.HasSuffix(hostname, suffix) {
				return true
			}
		}
	}
	return false
}
