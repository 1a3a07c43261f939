package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/awkns-projects/rom-gateway/internal/middleware"
	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/services"
	"github.com/awkns-projects/rom-gateway/internal/vault"
)

// AgentHandler serves the agent-capable endpoints. The gateway has already
// verified the token and injected identity; this layer enforces document
// scoping and the capability checks the injected permission list allows.
// Interactive sessions may call the same endpoints on behalf of the owner.
type AgentHandler struct {
	oauth       *services.OAuthService
	credentials *vault.CredentialService
}

func NewAgentHandler(oauth *services.OAuthService, credentials *vault.CredentialService) *AgentHandler {
	return &AgentHandler{oauth: oauth, credentials: credentials}
}

// scopedPrincipal resolves who is calling and the user the document belongs
// to. An agent token scoped to a different document is rejected outright,
// whatever its permission set nominally allows.
func (h *AgentHandler) scopedPrincipal(c *gin.Context, capability models.Capability) (userID string, ok bool) {
	identity := middleware.IdentityFrom(c)
	documentID := c.Param("id")

	switch identity.Kind {
	case models.IdentityAgent:
		claims := identity.Agent
		if claims.DocumentID != documentID {
			c.Error(models.ErrDocumentMismatch)
			return "", false
		}
		if !claims.Permissions.Has(capability) {
			c.Error(models.ErrForbidden)
			return "", false
		}
		// Agents act on behalf of the document owner; the owning user is
		// recorded in the document's connection rows.
		return c.Query("user_id"), true
	case models.IdentityUser:
		return identity.User.UserID, true
	default:
		c.Error(models.ErrMissingToken)
		return "", false
	}
}

// GetDocumentContext returns the operating context a deployed agent needs:
// which providers have stored keys and which OAuth connections are live.
func (h *AgentHandler) GetDocumentContext(c *gin.Context) {
	userID, ok := h.scopedPrincipal(c, models.CapabilityRead)
	if !ok {
		return
	}
	documentID := c.Param("id")

	conns, err := h.oauth.GetActive(c.Request.Context(), documentID, userID)
	if err != nil {
		c.Error(err)
		return
	}
	views := make([]models.ConnectionView, 0, len(conns))
	for i := range conns {
		views = append(views, conns[i].View())
	}

	present := map[string]bool{}
	if userID != "" {
		if present, err = h.credentials.HasKeys(c.Request.Context(), userID); err != nil {
			c.Error(err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"keys":        present,
		"connections": views,
	})
}

type executeActionRequest struct {
	Input map[string]interface{} `json:"input"`
}

// ExecuteAction accepts an action invocation against the document. Execution
// itself is dispatched downstream; this endpoint is the authorization
// surface, requiring the execute capability.
func (h *AgentHandler) ExecuteAction(c *gin.Context) {
	if _, ok := h.scopedPrincipal(c, models.CapabilityExecute); !ok {
		return
	}

	var req executeActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"document_id": c.Param("id"),
		"action":      c.Param("action"),
		"accepted":    true,
	})
}
