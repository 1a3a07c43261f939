package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/awkns-projects/rom-gateway/internal/vault"
)

var startTime = time.Now()

// StatusResponse describes the running gateway.
type StatusResponse struct {
	Status        string      `json:"status"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	Version       string      `json:"version"`
	Gateway       GatewayInfo `json:"gateway"`
}

// GatewayInfo reports non-secret operational configuration.
type GatewayInfo struct {
	AgentTokenHeader   string `json:"agent_token_header"`
	TokenAlgorithm     string `json:"token_algorithm"`
	RateLimitBackend   string `json:"rate_limit_backend"`
	VaultKeyTier       string `json:"vault_key_tier"`
	RateLimitPerWindow int    `json:"rate_limit_per_window"`
}

type StatusHandler struct {
	version          string
	rateLimitBackend string
	rateLimit        int
	vaultTier        vault.KeyTier
}

func NewStatusHandler(version, rateLimitBackend string, rateLimit int, vaultTier vault.KeyTier) *StatusHandler {
	return &StatusHandler{
		version:          version,
		rateLimitBackend: rateLimitBackend,
		rateLimit:        rateLimit,
		vaultTier:        vaultTier,
	}
}

// Status handles the status endpoint.
func (h *StatusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Version:       h.version,
		Gateway: GatewayInfo{
			AgentTokenHeader:   "X-Agent-Token",
			TokenAlgorithm:     "HS256",
			RateLimitBackend:   h.rateLimitBackend,
			VaultKeyTier:       string(h.vaultTier),
			RateLimitPerWindow: h.rateLimit,
		},
	})
}

// Health is the liveness probe.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
