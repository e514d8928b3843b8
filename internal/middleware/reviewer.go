package middleware

import (
	"contentgen/internal/utils"

	"github.com/gin-gonic/gin"
)

// ReviewerMiddleware restricts a route to reviewers.
func ReviewerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsReviewer(c) {
			utils.Forbidden(c, "reviewer role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
