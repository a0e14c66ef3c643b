package plans

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler отдаёт каталог планов (публично).
type Handler struct{}

// NewHandler создаёт обработчик.
func NewHandler() *Handler { return &Handler{} }

// Register подключает GET /plans.
func (h *Handler) Register(public *gin.RouterGroup) {
	public.GET("/plans", h.List)
}

// List — GET /plans
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": Catalog()})
}
