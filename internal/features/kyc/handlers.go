// Package kyc — handlers.go: multipart-загрузка документа и админская проверка.
package kyc

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/api/respond"
	"serotonyl.ru/invest-platform/internal/common"
)

// Handler обрабатывает /kyc и /admin/kyc.
type Handler struct {
	service  *Service
	maxBytes int64
}

// NewHandler создаёт обработчик. maxBytes — предел размера документа.
func NewHandler(service *Service, maxBytes int64) *Handler {
	return &Handler{service: service, maxBytes: maxBytes}
}

// Register подключает маршруты.
func (h *Handler) Register(user, admin *gin.RouterGroup) {
	user.GET("/kyc", h.Mine)
	user.POST("/kyc", h.Submit)

	admin.GET("/kyc", h.List)
	admin.POST("/kyc/:id/review", h.Review)
	admin.GET("/kyc/:id/document", h.Document)
}

// Submit — POST /kyc (multipart: fullName, documentType, documentNumber, document)
func (h *Handler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)

	var req SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	fh, err := c.FormFile("document")
	if err != nil {
		respond.Error(c, common.ErrDocumentRequired)
		return
	}
	if fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document is too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer f.Close()

	sub, err := h.service.Submit(c.Request.Context(), middleware.MustUserID(c), req, Document{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}, f)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"kyc": sub})
}

// Mine — GET /kyc
func (h *Handler) Mine(c *gin.Context) {
	sub, err := h.service.Mine(c.Request.Context(), middleware.MustUserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kyc": sub})
}

// List — GET /admin/kyc?status=&page=&limit=
func (h *Handler) List(c *gin.Context) {
	page := respond.PageFromQuery(c)
	list, total, err := h.service.List(c.Request.Context(), c.Query("status"), page)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kyc": list, "total": total, "page": page.Page, "limit": page.Limit})
}

// Review — POST /admin/kyc/:id/review
func (h *Handler) Review(c *gin.Context) {
	id, ok := respond.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sub, err := h.service.Review(c.Request.Context(), id, middleware.MustUserID(c), req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kyc": sub})
}

// Document — GET /admin/kyc/:id/document
func (h *Handler) Document(c *gin.Context) {
	id, ok := respond.UUIDParam(c, "id")
	if !ok {
		return
	}
	url, err := h.service.DocumentURL(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(PresignTTL.Seconds())})
}
