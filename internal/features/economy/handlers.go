// Package economy — handlers.go отдаёт пользователю баланс и историю движений.
package economy

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/api/respond"
)

// Handler обрабатывает /balance и /transactions.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты пользователя.
func (h *Handler) Register(user *gin.RouterGroup) {
	user.GET("/balance", h.Balance)
	user.GET("/transactions", h.Transactions)
}

// Balance — GET /balance
func (h *Handler) Balance(c *gin.Context) {
	b, err := h.service.GetBalance(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance": b.Balance,
		"bonus":   b.Bonus,
		"total":   b.Total(),
	})
}

// Transactions — GET /transactions
func (h *Handler) Transactions(c *gin.Context) {
	list, err := h.service.History(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}
