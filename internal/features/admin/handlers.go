// Package admin — handlers.go: вход в админку и удаление пользователей.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/api/respond"
)

// Handler обрабатывает /admin/login, /admin/logout и DELETE /admin/users/:id.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты. login — группа админов без проверки сессии,
// admin — с проверкой.
func (h *Handler) Register(login, admin *gin.RouterGroup) {
	login.POST("/login", h.Login)

	admin.POST("/logout", h.Logout)
	admin.DELETE("/users/:id", h.DeleteUser)
}

// Login — POST /admin/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	session, err := h.service.Login(c.Request.Context(), middleware.MustUserID(c), req.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"header":    middleware.AdminSessionHeader,
	})
}

// Logout — POST /admin/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), middleware.MustUserID(c)); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteUser — DELETE /admin/users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := respond.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteUser(c.Request.Context(), middleware.MustUserID(c), id); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
