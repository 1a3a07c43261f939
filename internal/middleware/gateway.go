package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/awkns-projects/rom-gateway/internal/gateway"
	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/services"
)

// IdentityKey is the gin context key holding the resolved models.Identity.
const IdentityKey = "identity"

// Gateway adapts the dispatcher's decision onto the gin request lifecycle:
// response headers, identity injection, redirects and structured rejections.
func Gateway(d *gateway.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := d.Evaluate(c.Request.Context(), requestInfo(c))

		for k, v := range decision.Headers {
			c.Header(k, v)
		}

		switch decision.Outcome {
		case gateway.OutcomeReject:
			c.AbortWithStatusJSON(decision.Status, gin.H{
				"error": decision.Message,
				"code":  decision.Code,
			})
		case gateway.OutcomeRedirect:
			status := decision.Status
			if status == 0 {
				status = http.StatusTemporaryRedirect
			}
			c.Redirect(status, decision.Target)
			c.Abort()
		default:
			if decision.Immediate {
				c.AbortWithStatus(decision.Status)
				return
			}
			for k, v := range gateway.IdentityHeaders(decision.Identity) {
				c.Request.Header.Set(k, v)
			}
			c.Set(IdentityKey, decision.Identity)
			c.Next()
		}
	}
}

func requestInfo(c *gin.Context) *gateway.RequestInfo {
	token := c.GetHeader(gateway.HeaderAgentToken)
	if token == "" {
		token = c.Query(gateway.QueryAgentToken)
	}
	cookie, err := c.Cookie(services.SessionCookieName)

	return &gateway.RequestInfo{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Host:          c.Request.Host,
		Referer:       c.Request.Referer(),
		RequestURI:    c.Request.URL.RequestURI(),
		AgentToken:    token,
		SessionCookie: cookie,
		CookiePresent: err == nil,
	}
}

// IdentityFrom reads the identity the gateway attached to the request.
func IdentityFrom(c *gin.Context) models.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(models.Identity); ok {
			return id
		}
	}
	return models.AnonymousIdentity()
}
