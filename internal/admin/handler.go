package admin

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes expects rg to be behind auth.Middleware
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/properties/pending", h.Pending)
		admin.GET("/properties/export", h.Export)
		admin.GET("/stats", h.Stats)
	}
}

func (h *Handler) Pending(c *gin.Context) {
	var filter QueueFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Status != nil {
		if _, err := workflows.ParseStatus(string(*filter.Status)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	filter.normalize()

	items, total, err := h.service.Queue(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to load pending queue", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load pending queue"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compute stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Export(c *gin.Context) {
	format := ExportFormat(c.DefaultQuery("format", string(FormatXLSX)))
	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	switch format {
	case FormatXLSX:
	case FormatCSV:
		contentType = "text/csv"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be xlsx or csv"})
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), format, &buf); err != nil {
		h.logger.Error("failed to export queue", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export queue"})
		return
	}
	filename := fmt.Sprintf("verification-queue-%s.%s", h.service.now().Format("20060102"), format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
