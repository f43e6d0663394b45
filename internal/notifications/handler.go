package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

const defaultDeliveryLimit = 50

// Handler exposes the delivery log to admins
type Handler struct {
	repo   DeliveryRepository
	logger *zap.Logger
}

func NewHandler(repo DeliveryRepository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes expects rg to be behind auth.Middleware
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/admin/properties/:id/notifications", auth.RequireRole(auth.RoleAdmin), h.List)
}

func (h *Handler) List(c *gin.Context) {
	id, ok := verification.ParamID(c)
	if !ok {
		return
	}
	limit := defaultDeliveryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	logs, err := h.repo.ListForProperty(c.Request.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to list deliveries", zap.String("property_id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deliveries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": logs, "count": len(logs)})
}
