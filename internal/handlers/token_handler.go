package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/services"
)

// TokenHandler mints agent tokens. The route is guarded by the master token;
// deployed agents never reach it.
type TokenHandler struct {
	tokens *services.AgentTokenService
}

func NewTokenHandler(tokens *services.AgentTokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// IssueToken creates a signed token scoping an agent to one document and a
// permission set.
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req models.IssueAgentTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
		return
	}

	token, err := h.tokens.Issue(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": models.ErrorCode(err)})
		return
	}

	c.JSON(http.StatusOK, models.IssueAgentTokenResponse{
		Token:       token,
		AgentKey:    req.AgentKey,
		DocumentID:  req.DocumentID,
		Permissions: req.Permissions,
		ExpiresAt:   req.ExpiresAt,
	})
}
