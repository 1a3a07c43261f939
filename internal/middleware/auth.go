package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireMasterToken guards operator endpoints (token minting) behind the
// platform master token. Comparison is constant time.
func RequireMasterToken(masterToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required", "code": "missing_token"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format", "code": "missing_token"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(masterToken)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "master token required", "code": "forbidden"})
			c.Abort()
			return
		}

		c.Next()
	}
}
