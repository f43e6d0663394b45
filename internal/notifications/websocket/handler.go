package websocket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

// Lookup loads the record a client wants to watch
type Lookup interface {
	Get(ctx context.Context, id uuid.UUID) (*verification.Record, error)
}

type Handler struct {
	manager *Manager
	lookup  Lookup
	logger  *zap.Logger
}

func NewHandler(manager *Manager, lookup Lookup, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{manager: manager, lookup: lookup, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/properties/:id/ws", h.Connect)
}

// Connect subscribes the caller to timeline updates of one property
func (h *Handler) Connect(c *gin.Context) {
	id, ok := verification.ParamID(c)
	if !ok {
		return
	}
	rec, err := h.lookup.Get(c.Request.Context(), id)
	if err != nil {
		verification.RespondError(c, h.logger, err)
		return
	}
	actor, _ := auth.ActorFrom(c)
	if actor.Is(auth.RoleSeller) && rec.SellerID != actor.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": verification.ErrNotFound.Error()})
		return
	}
	if _, err := h.manager.HandleConnection(c.Writer, c.Request, id, actor.ID); err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}
