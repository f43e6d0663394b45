package certificates

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/storage"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

type fakeViewer map[uuid.UUID]*verification.View

func (f fakeViewer) View(ctx context.Context, id uuid.UUID) (*verification.View, error) {
	v, ok := f[id]
	if !ok {
		return nil, verification.ErrNotFound
	}
	return v, nil
}

func verifiedView(status workflows.Status) *verification.View {
	area := 110.0
	completed := time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC)
	docs := map[verification.DocumentType][]verification.DocumentUpload{}
	for _, dt := range verification.RequiredDocumentTypes {
		docs[dt] = []verification.DocumentUpload{{Type: dt, OriginalFilename: string(dt) + ".pdf"}}
	}
	return &verification.View{
		Record: &verification.Record{
			PropertyID: uuid.New(),
			SellerID:   "s-1",
			SellerName: "Asha",
			Title:      "3BHK Villa, Whitefield",
			Address:    "12 Palm Grove",
			City:       "Bengaluru",
			Status:     status,
			Claimed:    verification.ClaimedMetrics{Area: &area},
			AIMetrics:  &verification.AIMetrics{EstimatedArea: 108, Confidence: 88},
			Documents:  docs,
			PaymentID:  "PAY_ABCDEF123456",
			Inspection: &verification.Inspection{InspectorName: "R. Kumar", CompletedAt: &completed},
		},
		Verdict: verification.Verdict{Analyzed: true, Recommendation: "Measurements consistent with the declared area"},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	body, err := Render(verifiedView(workflows.StatusVerified), time.Now(), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestIssuerStoresCertificateOnVerified(t *testing.T) {
	view := verifiedView(workflows.StatusVerified)
	id := view.Record.PropertyID
	store := storage.NewMemoryStore("http://files.test")
	issuer := NewIssuer(fakeViewer{id: view}, store, DefaultOptions(), nil)

	require.NoError(t, issuer.Publish(context.Background(), verification.Event{PropertyID: id, To: workflows.StatusDocumentReview}))
	assert.Empty(t, store.Keys())

	require.NoError(t, issuer.Publish(context.Background(), verification.Event{PropertyID: id, To: workflows.StatusVerified, Timestamp: time.Now()}))
	assert.Equal(t, []string{Key(id)}, store.Keys())

	rc, err := store.Get(context.Background(), Key(id))
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestIssueRefusesUnverified(t *testing.T) {
	view := verifiedView(workflows.StatusPendingAdminApproval)
	issuer := NewIssuer(fakeViewer{view.Record.PropertyID: view}, storage.NewMemoryStore(""), DefaultOptions(), nil)
	_, err := issuer.Issue(context.Background(), view.Record.PropertyID, time.Now())
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)
}

func TestDownloadHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	view := verifiedView(workflows.StatusVerified)
	id := view.Record.PropertyID
	store := storage.NewMemoryStore("http://files.test")
	viewer := fakeViewer{id: view}

	newRouter := func(actor auth.Actor) *gin.Engine {
		r := gin.New()
		api := r.Group("/api/v1", func(c *gin.Context) { auth.WithActor(c, actor); c.Next() })
		NewHandler(viewer, store, nil).RegisterRoutes(api)
		return r
	}
	owner := newRouter(auth.Actor{ID: "s-1", Role: auth.RoleSeller})
	path := "/api/v1/properties/" + id.String() + "/certificate"

	w := httptest.NewRecorder()
	owner.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "not issued yet")

	_, err := NewIssuer(viewer, store, DefaultOptions(), nil).Issue(context.Background(), id, time.Now())
	require.NoError(t, err)

	w = httptest.NewRecorder()
	owner.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "http://files.test/")

	w = httptest.NewRecorder()
	newRouter(auth.Actor{ID: "s-2", Role: auth.RoleSeller}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
