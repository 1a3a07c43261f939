package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/awkns-projects/rom-gateway/internal/middleware"
	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/vault"
)

// CredentialHandler exposes the vault to the signed-in user. Responses carry
// presence flags only; plaintext keys are never read back over the API.
type CredentialHandler struct {
	credentials *vault.CredentialService
}

func NewCredentialHandler(credentials *vault.CredentialService) *CredentialHandler {
	return &CredentialHandler{credentials: credentials}
}

// sessionUser resolves the interactive user the gateway attached, or writes
// a 401 and returns false.
func sessionUser(c *gin.Context) (*models.SessionClaims, bool) {
	identity := middleware.IdentityFrom(c)
	if identity.Kind != models.IdentityUser || identity.User == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required", "code": "missing_session"})
		return nil, false
	}
	return identity.User, true
}

// HasKeys returns which providers have a stored key for the user.
func (h *CredentialHandler) HasKeys(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		return
	}
	present, err := h.credentials.HasKeys(c.Request.Context(), user.UserID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": present})
}

// SaveKeys encrypts and stores the provided provider keys. Providers absent
// from the request are left untouched.
func (h *CredentialHandler) SaveKeys(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		return
	}
	var req models.SaveKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
		return
	}
	if err := h.credentials.SaveKeys(c.Request.Context(), user.UserID, req.Keys); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": len(req.Keys)})
}

// DeleteKeys clears the named provider keys; deleting an absent key is a
// no-op.
func (h *CredentialHandler) DeleteKeys(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		return
	}
	var req models.DeleteKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
		return
	}
	if err := h.credentials.DeleteKeys(c.Request.Context(), user.UserID, req.Providers); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": req.Providers})
}
