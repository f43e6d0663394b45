package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

func newSettleRouter(h *Handler, role auth.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		auth.WithActor(c, auth.Actor{ID: "caller", Role: role})
		c.Next()
	})
	h.RegisterRoutes(api)
	return r
}

func TestSettleHandlerConfirmsRecord(t *testing.T) {
	g := NewGateway(NewMemoryRepository(), ModeDeferred, nil)
	svc := verification.NewService(verification.NewMemoryRepository(), nil, g, verification.DefaultConfig(), nil)
	seller := testSeller()
	rec := submitToAwaitingPayment(t, svc, seller)
	out, err := svc.Pay(context.Background(), rec.PropertyID, seller, verification.PayRequest{PaymentConsent: true, PaymentMethod: "card"})
	require.NoError(t, err)

	r := newSettleRouter(NewHandler(g, svc, nil), auth.RoleSystem)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/system/payments/"+out.Record.PaymentID+"/settle", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"document_review"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/system/payments/PAY_FFFFFFFFFFFF/settle", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettleHandlerRequiresSystemRole(t *testing.T) {
	g := NewGateway(NewMemoryRepository(), ModeDeferred, nil)
	r := newSettleRouter(NewHandler(g, nil, nil), auth.RoleSeller)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/system/payments/PAY_FFFFFFFFFFFF/settle", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
