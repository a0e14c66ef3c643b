// Package investments — handlers.go содержит HTTP-обработчики инвестиций
// для пользователя и для админки.
package investments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/api/respond"
	"serotonyl.ru/invest-platform/internal/common"
)

// Handler обрабатывает /investments и /admin/investments.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты. admin уже за проверкой админ-сессии.
func (h *Handler) Register(user, admin *gin.RouterGroup) {
	user.GET("/investments", h.ListMine)
	user.POST("/investments", h.Create)
	user.GET("/investments/:id", h.Get)

	admin.GET("/investments", h.List)
	admin.POST("/investments/:id/approve", h.Approve)
	admin.POST("/accrual/run", h.RunAccrual)
	admin.GET("/accrual/runs", h.Runs)
}

// Create — POST /investments
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	inv, err := h.service.Create(c.Request.Context(), middleware.MustUserID(c), req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"investment": inv})
}

// ListMine — GET /investments
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.service.ListMine(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": list})
}

// Get — GET /investments/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := respond.UUIDParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.service.Get(c.Request.Context(), middleware.MustUserID(c), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investment": inv})
}

// List — GET /admin/investments?status=&search=&page=&limit=
func (h *Handler) List(c *gin.Context) {
	page := respond.PageFromQuery(c)
	list, total, err := h.service.List(c.Request.Context(), ListFilter{
		Status: Status(c.Query("status")),
		Search: c.Query("search"),
		Page:   page.Page,
		Limit:  page.Limit,
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidTransition) {
			respond.BadRequest(c, err.Error())
			return
		}
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"investments": list,
		"total":       total,
		"page":        page.Page,
		"limit":       page.Limit,
	})
}

// Approve — POST /admin/investments/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, ok := respond.UUIDParam(c, "id")
	if !ok {
		return
	}
	approval, err := h.service.Approve(c.Request.Context(), id, middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}

	res := approval.Terms.Resolution
	c.JSON(http.StatusOK, gin.H{
		"investment":   approval.Investment,
		"planSource":   res.Source,
		"planFallback": res.Fallback,
		"referralReward": gin.H{
			"created": approval.RewardID != nil,
			"amount":  approval.Terms.ReferralReward,
		},
	})
}

// RunAccrual — POST /admin/accrual/run
func (h *Handler) RunAccrual(c *gin.Context) {
	run, err := h.service.RunAccrual(c.Request.Context(), TriggerHTTP)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

// Runs — GET /admin/accrual/runs?limit=
func (h *Handler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.service.Runs(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
