// Package notifications — handlers.go содержит HTTP-обработчики уведомлений.
package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/api/respond"
	"serotonyl.ru/invest-platform/internal/common"
)

// Handler обрабатывает /notifications.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты пользователя.
func (h *Handler) Register(user *gin.RouterGroup) {
	user.GET("/notifications", h.List)
	user.GET("/notifications/unseen-count", h.UnseenCount)
	user.POST("/notifications/seen", h.MarkAllSeen)
	user.POST("/notifications/:id/seen", h.MarkSeen)
}

// List — GET /notifications?page=&limit=
func (h *Handler) List(c *gin.Context) {
	userID := middleware.MustUserID(c)
	page := respond.PageFromQuery(c)

	list, total, err := h.service.List(c.Request.Context(), userID, page)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"total":         total,
		"page":          page.Page,
		"limit":         page.Limit,
	})
}

// UnseenCount — GET /notifications/unseen-count
func (h *Handler) UnseenCount(c *gin.Context) {
	n, err := h.service.UnseenCount(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkSeen — POST /notifications/:id/seen
func (h *Handler) MarkSeen(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond.Error(c, common.ErrNotificationNotFound)
		return
	}
	if err := h.service.MarkSeen(c.Request.Context(), middleware.MustUserID(c), id); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusSeen})
}

// MarkAllSeen — POST /notifications/seen
func (h *Handler) MarkAllSeen(c *gin.Context) {
	n, err := h.service.MarkAllSeen(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
