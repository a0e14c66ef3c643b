// Package withdrawals — handlers.go содержит HTTP-обработчики выводов.
package withdrawals

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/api/respond"
)

// Handler обрабатывает /withdrawals и /admin/withdrawals.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты.
func (h *Handler) Register(user, admin *gin.RouterGroup) {
	user.GET("/withdrawals", h.ListMine)
	user.POST("/withdrawals", h.Create)

	admin.GET("/withdrawals", h.List)
	admin.POST("/withdrawals/:id/process", h.Process)
}

// Create — POST /withdrawals
func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	w, err := h.service.Create(c.Request.Context(), middleware.MustUserID(c), req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"withdrawal": w})
}

// ListMine — GET /withdrawals
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.service.ListMine(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

// List — GET /admin/withdrawals?status=&page=&limit=
func (h *Handler) List(c *gin.Context) {
	page := respond.PageFromQuery(c)
	list, total, err := h.service.List(c.Request.Context(), ListFilter{
		Status: c.Query("status"),
		Page:   page.Page,
		Limit:  page.Limit,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list, "total": total, "page": page.Page, "limit": page.Limit})
}

type processRequest struct {
	Decision Decision `json:"decision" binding:"required"`
}

// Process — POST /admin/withdrawals/:id/process {"decision":"approve|reject"}
func (h *Handler) Process(c *gin.Context) {
	id, ok := respond.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	w, err := h.service.Process(c.Request.Context(), id, middleware.MustUserID(c), req.Decision)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": w})
}
