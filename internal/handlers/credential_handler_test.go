package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awkns-projects/rom-gateway/internal/models"
)

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestCredentialHandler_SaveAndHasKeys(t *testing.T) {
	f := newHandlerFixture(t, userIdentity("user1"))

	req := httptest.NewRequest(http.MethodPut, "/api/keys", jsonBody(t, models.SaveKeysRequest{
		Keys: map[string]string{"openai": "sk-live-abc123", "anthropic": "sk-ant-xyz"},
	}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"saved":2`)

	// Stored ciphertext, not plaintext.
	assert.NotEqual(t, "sk-live-abc123", f.credStore.rows["user1"]["openai"])
	assert.Contains(t, f.credStore.rows["user1"]["openai"], ":")

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/keys", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Keys map[string]bool `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Keys["openai"])
	assert.True(t, resp.Keys["anthropic"])
	// Presence flags only, never the keys themselves.
	assert.NotContains(t, w.Body.String(), "sk-live-abc123")
}

func TestCredentialHandler_PartialUpdate(t *testing.T) {
	f := newHandlerFixture(t, userIdentity("user1"))

	save := func(keys map[string]string) {
		req := httptest.NewRequest(http.MethodPut, "/api/keys", jsonBody(t, models.SaveKeysRequest{Keys: keys}))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	save(map[string]string{"openai": "first", "anthropic": "keep-me"})
	save(map[string]string{"openai": "second"})

	keys, err := f.credentials.GetKeys(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, "second", keys["openai"])
	assert.Equal(t, "keep-me", keys["anthropic"])
}

func TestCredentialHandler_DeleteKeys(t *testing.T) {
	f := newHandlerFixture(t, userIdentity("user1"))

	req := httptest.NewRequest(http.MethodPut, "/api/keys", jsonBody(t, models.SaveKeysRequest{
		Keys: map[string]string{"openai": "sk-1"},
	}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	del := httptest.NewRequest(http.MethodDelete, "/api/keys", jsonBody(t, models.DeleteKeysRequest{
		Providers: []string{"openai", "never-stored"},
	}))
	del.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, del)
	require.Equal(t, http.StatusOK, w.Code)

	keys, err := f.credentials.GetKeys(context.Background(), "user1")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCredentialHandler_RequiresSession(t *testing.T) {
	// Agent and anonymous identities cannot reach the vault endpoints.
	for name, id := range map[string]models.Identity{
		"anonymous": models.AnonymousIdentity(),
		"agent":     agentIdentity(t, "k1", "d1", []string{"admin"}),
	} {
		t.Run(name, func(t *testing.T) {
			f := newHandlerFixture(t, id)
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/keys", nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"missing_session"`)
		})
	}
}

func TestCredentialHandler_InvalidBody(t *testing.T) {
	f := newHandlerFixture(t, userIdentity("user1"))

	req := httptest.NewRequest(http.MethodPut, "/api/keys", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
