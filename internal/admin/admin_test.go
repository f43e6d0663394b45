package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

func seed(t *testing.T, statuses ...workflows.Status) *verification.MemoryRepository {
	t.Helper()
	repo := verification.NewMemoryRepository()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, s := range statuses {
		require.NoError(t, repo.Create(context.Background(), &verification.Record{
			PropertyID: uuid.New(),
			Title:      "Listing " + string(s),
			SellerName: "Asha",
			Status:     s,
			FeeAmount:  1000,
			CreatedAt:  base,
			UpdatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	return repo
}

func TestStatsFromCounts(t *testing.T) {
	s := statsFromCounts(map[workflows.Status]int{
		workflows.StatusPending:              3,
		workflows.StatusDocumentReview:       2,
		workflows.StatusPendingAdminApproval: 1,
		workflows.StatusInspectionComplete:   1,
		workflows.StatusVerified:             4,
		workflows.StatusRejected:             2,
	})
	assert.Equal(t, 4, s.Pending)
	assert.Equal(t, 4, s.Approved)
	assert.Equal(t, 2, s.Rejected)
	assert.Equal(t, 13, s.Total)
}

func TestRecordStoreQueue(t *testing.T) {
	store := NewRecordStore(seed(t,
		workflows.StatusPending,
		workflows.StatusDocumentReview,
		workflows.StatusPendingAdminApproval,
		workflows.StatusInspectionComplete,
		workflows.StatusVerified,
	))

	items, total, err := store.PendingQueue(context.Background(), QueueFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, workflows.StatusDocumentReview, items[0].Status, "oldest update first")

	items, total, err = store.PendingQueue(context.Background(), QueueFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, workflows.StatusInspectionComplete, items[0].Status)

	only := workflows.StatusPendingAdminApproval
	items, total, err = store.PendingQueue(context.Background(), QueueFilter{Status: &only})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, only, items[0].Status)
}

func TestExportWorkbook(t *testing.T) {
	svc := NewService(NewRecordStore(seed(t,
		workflows.StatusDocumentReview,
		workflows.StatusVerified,
		workflows.StatusRejected,
	)), nil)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), FormatXLSX, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(queueSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Title", header)
	title, err := f.GetCellValue(queueSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Listing document_review", title)
	empty, err := f.GetCellValue(queueSheet, "B3")
	require.NoError(t, err)
	assert.Empty(t, empty)

	total, err := f.GetCellValue(summarySheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "3", total)
}

func TestExportCSV(t *testing.T) {
	svc := NewService(NewRecordStore(seed(t,
		workflows.StatusPendingAdminApproval,
		workflows.StatusVerified,
	)), nil)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), FormatCSV, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, queueColumns, rows[0])
	assert.Equal(t, "Listing pending_admin_approval", rows[1][1])
	assert.Equal(t, "pending_admin_approval", rows[1][6])
}

func newRouter(svc *Service, role auth.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		auth.WithActor(c, auth.Actor{ID: "u-1", Role: role})
		c.Next()
	})
	NewHandler(svc, nil).RegisterRoutes(api)
	return r
}

func TestHandlerPendingAndStats(t *testing.T) {
	svc := NewService(NewRecordStore(seed(t,
		workflows.StatusDocumentReview,
		workflows.StatusPendingAdminApproval,
		workflows.StatusVerified,
	)), nil)
	r := newRouter(svc, auth.RoleAdmin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/properties/pending?page_size=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []QueueItem `json:"items"`
		Total int         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/properties/pending?status=archived", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 3, stats.Total)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/properties/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/properties/export?format=csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/properties/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerRequiresAdmin(t *testing.T) {
	r := newRouter(NewService(NewRecordStore(seed(t)), nil), auth.RoleSeller)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
