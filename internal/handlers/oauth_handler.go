package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/services"
)

// OAuthHandler manages stored OAuth connections for the signed-in user. The
// provider exchange happens upstream; the handler persists its result.
type OAuthHandler struct {
	oauth *services.OAuthService
}

func NewOAuthHandler(oauth *services.OAuthService) *OAuthHandler {
	return &OAuthHandler{oauth: oauth}
}

// SaveConnection persists the grant produced by a provider callback
// exchange. Saving again with refreshed tokens is the refresh path.
func (h *OAuthHandler) SaveConnection(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		return
	}
	var req models.SaveConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
		return
	}
	conn, err := h.oauth.Save(c.Request.Context(), user.UserID, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, conn.View())
}

// ListConnections returns the active connections for a document, without
// tokens.
func (h *OAuthHandler) ListConnections(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		return
	}
	documentID := c.Query("document_id")
	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document_id is required", "code": "invalid_request"})
		return
	}
	conns, err := h.oauth.GetActive(c.Request.Context(), documentID, user.UserID)
	if err != nil {
		c.Error(err)
		return
	}
	views := make([]models.ConnectionView, 0, len(conns))
	for i := range conns {
		views = append(views, conns[i].View())
	}
	c.JSON(http.StatusOK, gin.H{"connections": views})
}

type disconnectRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Provider   string `json:"provider" binding:"required"`
}

// Disconnect deactivates a connection; the row is kept for the audit trail.
func (h *OAuthHandler) Disconnect(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		return
	}
	var req disconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
		return
	}
	if err := h.oauth.Disconnect(c.Request.Context(), req.DocumentID, req.Provider, user.UserID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disconnected": true})
}
