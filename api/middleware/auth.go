package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pokedex/models"
)

// IdentityKey is the gin context key holding the authenticated token.
const IdentityKey = "api_token"

// UnauthorizedMessage is returned for every missing or unknown token.
const UnauthorizedMessage = "Empty or invalid token"

// Auth returns token authentication middleware.
//
// The token is read from, in order:
//
//	?token=<token>
//	X-API-Key: <token>
//	Authorization: Bearer <token>
//
// If tokens is empty, the middleware is a no-op (open access). A rejected
// request is aborted before any handler runs, so no browser is launched.
func Auth(tokens []string) gin.HandlerFunc {
	accepted := make([][]byte, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			accepted = append(accepted, []byte(t))
		}
	}
	if len(accepted) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" || !matches(accepted, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.ErrorEnvelope(models.ErrCodeUnauthorized, UnauthorizedMessage))
			return
		}

		c.Set(IdentityKey, token)
		c.Next()
	}
}

func matches(accepted [][]byte, token string) bool {
	t := []byte(token)
	for _, a := range accepted {
		if subtle.ConstantTimeCompare(a, t) == 1 {
			return true
		}
	}
	return false
}

func extractToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	if t := c.GetHeader("X-API-Key"); t != "" {
		return t
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
