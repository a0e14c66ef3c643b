// Package middleware содержит gin-middleware: логирование запросов,
// восстановление после паники, rate-limiting и аутентификацию.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Logger логирует каждый HTTP-запрос.
// Записывает: method, path, status, duration, client_ip и user_id, если он есть.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := log.Fields{
			"method":    c.Request.Method,
			"path":      path,
			"status":    status,
			"duration":  time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if id, ok := UserID(c); ok {
			fields["user_id"] = id
		}
		entry := log.WithFields(fields)

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.String())
		case status >= 500:
			entry.Error("Internal server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Debug("Request completed")
		}
	}
}

func strconvSeconds(d time.Duration) string {
	return strconv.Itoa(int(d.Seconds()))
}
