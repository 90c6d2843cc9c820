package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinicbook/backend/config/db"
	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/models/user_models"
)

// AuthMiddleware validates the bearer token, loads the user, and requires a
// verified email before any booking or payment route runs.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "NO_TOKEN", "error": "No authorization token provided."})
			return
		}

		var rawToken string
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
			rawToken = authHeader[7:]
		} else {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "INVALID_AUTH_FORMAT", "error": "Invalid authorization format."})
			return
		}

		userID, err := shared_models.ParseAccessToken(rawToken)
		if err != nil {
			logger.WarnLogger.Warnf("Token validation failed: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "INVALID_TOKEN", "error": "Invalid or expired token."})
			return
		}

		user, err := user_models.GetUserByID(c.Request.Context(), db.DB, userID.String())
		if err != nil {
			logger.ErrorLogger.Errorf("User %s from token not found: %v", userID, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "USER_TOKEN_INVALID", "error": "User associated with token not found."})
			return
		}

		if !user.IsVerifiedEmail {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "EMAIL_NOT_VERIFIED", "error": "Email not verified."})
			return
		}

		c.Set("user_id", user.ID)
		c.Set("authenticated_user", user)
		c.Next()
	}
}
