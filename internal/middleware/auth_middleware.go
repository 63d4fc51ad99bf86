package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"taskmanager/internal/model"
	"taskmanager/internal/policy"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by Authenticate.
const (
	UserIDKey  = "userID"
	UserKey    = "user"
	TokenIDKey = "tokenID"
)

// Authenticator resolves a raw bearer token to its user and token id.
type Authenticator interface {
	CurrentUser(ctx context.Context, rawToken string) (*model.User, uuid.UUID, error)
}

// Authenticate requires a valid, unrevoked bearer token.
func Authenticate(a Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		user, tokenID, err := a.CurrentUser(c.Request.Context(), strings.TrimSpace(parts[1]))
		if errors.Is(err, service.ErrUnauthenticated) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if err != nil {
			log.Error("failed to resolve bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)
		c.Set(TokenIDKey, tokenID)
		c.Next()
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		if !policy.RequireAdmin(user.Role).Allowed() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized. Admin access required."})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}

// CurrentTokenID returns the id of the token the request was authenticated with.
func CurrentTokenID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(TokenIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
