package handlers

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awkns-projects/rom-gateway/internal/middleware"
	"github.com/awkns-projects/rom-gateway/internal/models"
	"github.com/awkns-projects/rom-gateway/internal/services"
	"github.com/awkns-projects/rom-gateway/internal/vault"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withIdentity stands in for the gateway middleware, attaching a resolved
// identity directly.
func withIdentity(id models.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.IdentityKey, id)
		c.Next()
	}
}

func userIdentity(userID string) models.Identity {
	return models.Identity{
		Kind: models.IdentityUser,
		User: &models.SessionClaims{UserID: userID},
	}
}

func agentIdentity(t *testing.T, agentKey, documentID string, perms []string) models.Identity {
	t.Helper()
	set, unknown, ok := models.NewPermissionSet(perms)
	require.True(t, ok, "unknown capability %q", unknown)
	return models.Identity{
		Kind: models.IdentityAgent,
		Agent: &models.AgentClaims{
			AgentKey:    agentKey,
			DocumentID:  documentID,
			Permissions: set,
		},
	}
}

type fakeCredStore struct {
	rows map[string]map[string]string // userID -> provider -> ciphertext
}

func newFakeCredStore() *fakeCredStore {
	return &fakeCredStore{rows: make(map[string]map[string]string)}
}

func (f *fakeCredStore) Upsert(_ context.Context, userID, provider, ciphertext string) error {
	if f.rows[userID] == nil {
		f.rows[userID] = make(map[string]string)
	}
	f.rows[userID][provider] = ciphertext
	return nil
}

func (f *fakeCredStore) ListByUser(_ context.Context, userID string) ([]models.ProviderCredential, error) {
	var out []models.ProviderCredential
	for provider, ct := range f.rows[userID] {
		out = append(out, models.ProviderCredential{UserID: userID, Provider: provider, Ciphertext: ct})
	}
	return out, nil
}

func (f *fakeCredStore) Delete(_ context.Context, userID string, providers []string) error {
	for _, p := range providers {
		delete(f.rows[userID], p)
	}
	return nil
}

type fakeOAuthStore struct {
	conns map[string]*models.OAuthConnection // userID/documentID/provider
}

func newFakeOAuthStore() *fakeOAuthStore {
	return &fakeOAuthStore{conns: make(map[string]*models.OAuthConnection)}
}

func connKey(userID, documentID, provider string) string {
	return userID + "/" + documentID + "/" + provider
}

func (f *fakeOAuthStore) Upsert(_ context.Context, conn *models.OAuthConnection) error {
	cp := *conn
	cp.IsActive = true
	f.conns[connKey(conn.UserID, conn.DocumentID, conn.Provider)] = &cp
	return nil
}

func (f *fakeOAuthStore) ListActive(_ context.Context, documentID, userID string) ([]models.OAuthConnection, error) {
	var out []models.OAuthConnection
	for _, c := range f.conns {
		if c.DocumentID == documentID && c.UserID == userID && c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeOAuthStore) Deactivate(_ context.Context, documentID, provider, userID string) error {
	c, ok := f.conns[connKey(userID, documentID, provider)]
	if !ok || !c.IsActive {
		return models.ErrConnectionNotFound
	}
	c.IsActive = false
	return nil
}

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New(vault.Config{EncryptionKey: "handler-test-key"}, zap.NewNop())
	require.NoError(t, err)
	return v
}

type handlerFixture struct {
	router      *gin.Engine
	credStore   *fakeCredStore
	oauthStore  *fakeOAuthStore
	credentials *vault.CredentialService
	oauth       *services.OAuthService
}

// newHandlerFixture wires the full handler surface behind a fixed identity.
func newHandlerFixture(t *testing.T, id models.Identity) *handlerFixture {
	t.Helper()

	v := testVault(t)
	credStore := newFakeCredStore()
	oauthStore := newFakeOAuthStore()
	credentials := vault.NewCredentialService(v, credStore, zap.NewNop())
	oauth := services.NewOAuthService(oauthStore, v, zap.NewNop())

	credHandler := NewCredentialHandler(credentials)
	oauthHandler := NewOAuthHandler(oauth)
	agentHandler := NewAgentHandler(oauth, credentials)

	router := gin.New()
	router.Use(middleware.ErrorHandler(), withIdentity(id))

	api := router.Group("/api")
	api.GET("/keys", credHandler.HasKeys)
	api.PUT("/keys", credHandler.SaveKeys)
	api.DELETE("/keys", credHandler.DeleteKeys)
	api.GET("/oauth/connections", oauthHandler.ListConnections)
	api.POST("/oauth/callback", oauthHandler.SaveConnection)
	api.POST("/oauth/disconnect", oauthHandler.Disconnect)
	api.GET("/agent/document/:id", agentHandler.GetDocumentContext)
	api.POST("/agent/document/:id/actions/:action", agentHandler.ExecuteAction)

	return &handlerFixture{
		router:      router,
		credStore:   credStore,
		oauthStore:  oauthStore,
		credentials: credentials,
		oauth:       oauth,
	}
}
