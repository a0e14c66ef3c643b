package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AdminSessionHeader — заголовок с токеном админ-сессии.
const AdminSessionHeader = "X-Admin-Session"

// SessionChecker проверяет админ-сессию.
type SessionChecker interface {
	HasActiveSession(ctx context.Context, userID uuid.UUID, token string) bool
}

// RequireAdmin пускает только is_admin из токена.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// RequireAdminSession дополнительно требует открытую сессию (пароль админки).
func RequireAdminSession(sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := MustUserID(c)
		token := c.GetHeader(AdminSessionHeader)
		if token == "" || !sessions.HasActiveSession(c.Request.Context(), userID, token) {
			log.WithField("user_id", userID).Warn("Запрос в админку без активной сессии")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin session required"})
			return
		}
		c.Next()
	}
}
