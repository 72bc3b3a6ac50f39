// Package identity extracts the calling user from a JWT bearer token. Full
// authentication flows (issuing tokens, refresh) live outside this service;
// handlers here only need to know who is acting.
package identity

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/quorumapp/quorum-api/internal/response"
)

// ContextKey is where the authenticated username is stored on the gin context
const ContextKey = "username"

// Middleware validates the Authorization bearer token and stores the subject
// claim as the acting username.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.UnauthorizedError(c, "missing bearer token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.UnauthorizedError(c, "invalid token")
			c.Abort()
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			response.UnauthorizedError(c, "token has no subject")
			c.Abort()
			return
		}

		c.Set(ContextKey, subject)
		c.Next()
	}
}

// Username returns the authenticated username from the context
func Username(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextKey)
	if !exists {
		return "", false
	}
	username, ok := value.(string)
	return username, ok && username != ""
}
