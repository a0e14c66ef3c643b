// Package referrals — handlers.go содержит HTTP-обработчики рефералки.
package referrals

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/api/respond"
	"serotonyl.ru/invest-platform/internal/common"
)

// Handler обрабатывает /referrals и /admin/referral-rewards.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты.
func (h *Handler) Register(user, admin *gin.RouterGroup) {
	user.GET("/referrals/stats", h.Stats)
	user.POST("/referrals/link", h.Link)
	user.POST("/referrals/code/refresh", h.RefreshCode)

	admin.GET("/referral-rewards", h.ListRewards)
	admin.POST("/referral-rewards/:id/pay", h.PayReward)
}

type linkRequest struct {
	Code string `json:"code" binding:"required"`
}

type refreshRequest struct {
	Seed string `json:"seed"`
}

// Stats — GET /referrals/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Link — POST /referrals/link
func (h *Handler) Link(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ref, err := h.service.Link(c.Request.Context(), middleware.MustUserID(c), req.Code)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"referral": ref})
}

// RefreshCode — POST /referrals/code/refresh
func (h *Handler) RefreshCode(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	code, expiresAt, err := h.service.RefreshCode(c.Request.Context(), middleware.MustUserID(c), req.Seed)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referralCode": code, "expiresAt": expiresAt})
}

// ListRewards — GET /admin/referral-rewards?status=
func (h *Handler) ListRewards(c *gin.Context) {
	page := respond.PageFromQuery(c)
	list, total, err := h.service.ListRewards(c.Request.Context(), c.Query("status"), page)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": list, "total": total, "page": page.Page, "limit": page.Limit})
}

// PayReward — POST /admin/referral-rewards/:id/pay
func (h *Handler) PayReward(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond.Error(c, common.ErrRewardNotFound)
		return
	}
	w, err := h.service.PayReward(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": w})
}
