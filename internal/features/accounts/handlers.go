// Package accounts — handlers.go содержит HTTP-обработчики регистрации, входа и профиля.
package accounts

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/api/respond"
)

// Handler обрабатывает /auth, /me и /admin/users.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты.
func (h *Handler) Register(public, user, admin *gin.RouterGroup) {
	public.POST("/auth/signup", h.Signup)
	public.POST("/auth/login", h.Login)

	user.GET("/me", h.Me)
	user.GET("/me/summary", h.Summary)

	admin.GET("/users", h.List)
	admin.POST("/users/:id/funds", h.AddFunds)
}

// Signup — POST /auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	session, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Login — POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Me — GET /me
func (h *Handler) Me(c *gin.Context) {
	u, err := h.service.Me(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// Summary — GET /me/summary
func (h *Handler) Summary(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// List — GET /admin/users?search=&page=&limit=
func (h *Handler) List(c *gin.Context) {
	page := respond.PageFromQuery(c)
	users, total, err := h.service.List(c.Request.Context(), ListFilter{
		Search: c.Query("search"),
		Page:   page.Page,
		Limit:  page.Limit,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total, "page": page.Page, "limit": page.Limit})
}

// AddFunds — POST /admin/users/:id/funds
func (h *Handler) AddFunds(c *gin.Context) {
	id, ok := respond.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req FundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.service.AddFunds(c.Request.Context(), id, req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
