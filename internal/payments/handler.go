package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

// Confirmer completes a deferred fee payment on the verification record
type Confirmer interface {
	ConfirmPayment(ctx context.Context, id uuid.UUID, actor auth.Actor, paymentID string) (*verification.Outcome, error)
}

type Handler struct {
	gateway   *Gateway
	confirmer Confirmer
	logger    *zap.Logger
}

func NewHandler(gateway *Gateway, confirmer Confirmer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{gateway: gateway, confirmer: confirmer, logger: logger}
}

// RegisterRoutes expects rg to be behind auth.Middleware
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/system/payments/:paymentId/settle", auth.RequireRole(auth.RoleSystem), h.Settle)
}

// Settle is the provider callback for a deferred payment
func (h *Handler) Settle(c *gin.Context) {
	paymentID := c.Param("paymentId")
	tx, err := h.gateway.Settle(c.Request.Context(), paymentID)
	if errors.Is(err, ErrTransactionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("failed to settle payment", zap.String("payment_id", paymentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out, err := h.confirmer.ConfirmPayment(c.Request.Context(), tx.PropertyID, auth.System("payments"), paymentID)
	if err != nil {
		verification.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "status": out.Record.Status})
}
