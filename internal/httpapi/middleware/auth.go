package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nexus-rag/nexus/internal/auth"
	"github.com/nexus-rag/nexus/internal/common"
)

// APIKeyHeader carries the long-lived service key.
const APIKeyHeader = "X-NEXUS-KEY"

// KeyRequired admits requests presenting either the service API key or
// a bearer token issued for it. An empty configured key rejects
// everything: no credentials configured means no access, not open
// access.
func KeyRequired(apiKey, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			common.Fail(c, http.StatusForbidden, 40300, "service api key is not configured")
			c.Abort()
			return
		}

		if got := c.GetHeader(APIKeyHeader); got != "" {
			if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) == 1 {
				c.Next()
				return
			}
			common.Fail(c, http.StatusForbidden, 40301, "could not validate credentials")
			c.Abort()
			return
		}

		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw := strings.TrimPrefix(h, "Bearer ")
			if auth.VerifyToken(jwtSecret, raw) == nil {
				c.Next()
				return
			}
		}

		common.Fail(c, http.StatusForbidden, 40301, "could not validate credentials")
		c.Abort()
	}
}
