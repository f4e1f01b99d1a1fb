package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/estate_backend/config"
	"github.com/mmdatafocus/estate_backend/utils"
)

// SessionLookup resolves a session token to its username.
type SessionLookup func(ctx context.Context, token string) (username string, ok bool, err error)

// RedisSessionLookup reads the "Token:<token>" keys written by the admin login.
func RedisSessionLookup(ctx context.Context, token string) (string, bool, error) {
	return config.GetRedisValue(ctx, "Token:"+token)
}

// SessionMiddleware rejects requests without a valid session token.
// The token comes from the "token" header or an "Authorization: Bearer" header.
func SessionMiddleware(lookup SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			auth := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				token = strings.TrimSpace(auth[7:])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		username, exists, err := lookup(c.Request.Context(), token)
		if err != nil || !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := utils.SetUsernameInContext(c.Request.Context(), username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
