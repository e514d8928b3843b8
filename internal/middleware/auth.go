package middleware

import (
	"errors"
	"strings"

	"contentgen/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID     = "user_id"
	ctxUsername   = "username"
	ctxIsReviewer = "is_reviewer"
)

// AuthMiddleware verifies the bearer token and stores the caller identity.
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Unauthorized(c, "authorization header must be a bearer token")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			message := "token is invalid"
			if errors.Is(err, utils.ErrTokenExpired) {
				message = "token has expired"
			}
			utils.Unauthorized(c, message)
			c.Abort()
			return
		}
		userID, _ := claims.UserID()

		c.Set(ctxUserID, userID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxIsReviewer, claims.Reviewer)

		c.Next()
	}
}

// GetUserID returns the authenticated user id.
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUsername returns the authenticated user name.
func GetUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(ctxUsername)
	if !exists {
		return "", false
	}
	name, ok := username.(string)
	return name, ok
}

// IsReviewer reports whether the caller may decide on tasks.
func IsReviewer(c *gin.Context) bool {
	isReviewer, exists := c.Get(ctxIsReviewer)
	if !exists {
		return false
	}
	ok, _ := isReviewer.(bool)
	return ok
}
