package certificates

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/storage"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

type Handler struct {
	viewer Viewer
	store  storage.ObjectStore
	logger *zap.Logger
}

func NewHandler(viewer Viewer, store storage.ObjectStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{viewer: viewer, store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/properties/:id/certificate", h.Download)
}

// Download redirects to a short-lived link to the certificate
func (h *Handler) Download(c *gin.Context) {
	id, ok := verification.ParamID(c)
	if !ok {
		return
	}
	view, err := h.viewer.View(c.Request.Context(), id)
	if err != nil {
		verification.RespondError(c, h.logger, err)
		return
	}
	actor, _ := auth.ActorFrom(c)
	if actor.Is(auth.RoleSeller) && view.Record.SellerID != actor.ID {
		verification.RespondError(c, h.logger, verification.ErrNotFound)
		return
	}
	if view.Record.Status != workflows.StatusVerified {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing is not verified"})
		return
	}

	url, err := h.store.PresignGet(c.Request.Context(), Key(id), 15*time.Minute)
	if errors.Is(err, storage.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not issued yet"})
		return
	}
	if err != nil {
		h.logger.Error("failed to sign certificate url", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate download link"})
		return
	}
	c.Redirect(http.StatusFound, url)
}
