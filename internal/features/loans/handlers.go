// Package loans — handlers.go
package loans

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/api/respond"
)

// Handler обрабатывает /loans и /admin/loans.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты.
func (h *Handler) Register(user, admin *gin.RouterGroup) {
	user.GET("/loans", h.ListMine)
	user.POST("/loans", h.Request)

	admin.GET("/loans", h.List)
	admin.POST("/loans/:id/process", h.Process)
}

// Request — POST /loans
func (h *Handler) Request(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	l, err := h.service.Request(c.Request.Context(), middleware.MustUserID(c), req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"loan": l})
}

// ListMine — GET /loans
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.service.ListMine(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": list})
}

// List — GET /admin/loans?status=
func (h *Handler) List(c *gin.Context) {
	page := respond.PageFromQuery(c)
	list, total, err := h.service.List(c.Request.Context(), c.Query("status"), page)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": list, "total": total, "page": page.Page, "limit": page.Limit})
}

// Process — POST /admin/loans/:id/process {"approve": true}
func (h *Handler) Process(c *gin.Context) {
	id, ok := respond.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	l, err := h.service.Process(c.Request.Context(), id, middleware.MustUserID(c), req.Approve)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": l})
}
