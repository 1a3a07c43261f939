package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/awkns-projects/rom-gateway/internal/handlers"
	"github.com/awkns-projects/rom-gateway/internal/middleware"
)

// Handlers bundles the route handlers the router wires up.
type Handlers struct {
	Status     *handlers.StatusHandler
	Token      *handlers.TokenHandler
	Credential *handlers.CredentialHandler
	OAuth      *handlers.OAuthHandler
	Agent      *handlers.AgentHandler
}

// SetupRoutes configures all routes. The gateway middleware runs on every
// request; route groups only add the master-token guard for operator
// endpoints. Trust is decided once, in the gateway.
func SetupRoutes(router *gin.Engine, h Handlers, gatewayMW gin.HandlerFunc, masterToken string) {
	logger := logrus.New()

	// Global middleware; the gateway decides before any handler runs.
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler())
	router.Use(gatewayMW)

	// Bypass surface (also allowed by the gateway's bypass rule)
	router.GET("/health", handlers.Health)
	router.GET("/status", h.Status.Status)

	// Credential vault
	keys := router.Group("/api/keys")
	{
		keys.GET("", h.Credential.HasKeys)
		keys.PUT("", h.Credential.SaveKeys)
		keys.DELETE("", h.Credential.DeleteKeys)
	}

	// OAuth connections
	oauth := router.Group("/api/oauth")
	{
		oauth.GET("/connections", h.OAuth.ListConnections)
		oauth.POST("/callback", h.OAuth.SaveConnection)
		oauth.POST("/disconnect", h.OAuth.Disconnect)
	}

	// Agent-capable endpoints
	agent := router.Group("/api/agent")
	{
		agent.GET("/document/:id", h.Agent.GetDocumentContext)
		agent.POST("/document/:id/actions/:action", h.Agent.ExecuteAction)
	}

	// Operator endpoints
	admin := router.Group("/admin")
	admin.Use(middleware.RequireMasterToken(masterToken))
	{
		admin.POST("/tokens", h.Token.IssueToken)
	}
}
