package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
)

func deliveryRouter(repo DeliveryRepository, role auth.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		auth.WithActor(c, auth.Actor{ID: "u-1", Role: role})
		c.Next()
	})
	NewHandler(repo, nil).RegisterRoutes(api)
	return r
}

func TestHandlerListDeliveries(t *testing.T) {
	id := uuid.New()
	repo := &memoryDeliveries{logs: []DeliveryLog{
		{ID: uuid.New(), PropertyID: id, Channel: ChannelEmail, Event: "ai_complete->awaiting_payment", Status: DeliverySent},
		{ID: uuid.New(), PropertyID: uuid.New(), Channel: ChannelSNS, Event: "pending->ai_analyzing", Status: DeliveryFailed},
	}}
	r := deliveryRouter(repo, auth.RoleAdmin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/properties/"+id.String()+"/notifications", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Deliveries []DeliveryLog `json:"deliveries"`
		Count      int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, ChannelEmail, body.Deliveries[0].Channel)
}

func TestHandlerListDeliveriesValidation(t *testing.T) {
	r := deliveryRouter(&memoryDeliveries{}, auth.RoleAdmin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/properties/not-a-uuid/notifications", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/properties/"+uuid.NewString()+"/notifications?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerListDeliveriesRequiresAdmin(t *testing.T) {
	r := deliveryRouter(&memoryDeliveries{}, auth.RoleSeller)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/properties/"+uuid.NewString()+"/notifications", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
