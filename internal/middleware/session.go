package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecorewards/internal/models"
)

const (
	SessionCookie = "session_token"

	userKey  = "user"
	tokenKey = "sessionToken"
)

type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*models.User, error)
}

// SessionToken reads the opaque session token from the cookie, falling back
// to a bearer header for non-browser clients.
func SessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	token, _ := bearerToken(c)
	return token
}

// SessionAuth resolves the session into a user and stores it on the context.
// Requests without a live session stop here with 401.
func SessionAuth(resolver SessionResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		user, err := resolver.ResolveSession(c.Request.Context(), token)
		if err != nil {
			log.Error("session lookup failed", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "service temporarily unavailable",
				"code":  "STORAGE_UNAVAILABLE",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHENTICATED"})
			return
		}

		c.Set(userKey, user)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// CurrentUser returns the user stored by SessionAuth.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
