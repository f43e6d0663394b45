// Package admin serves the review queue, verification statistics and the
// spreadsheet export used by the admin desk.
package admin

import (
	"time"

	"github.com/google/uuid"

	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// PendingStatuses are the statuses that wait on an admin
var PendingStatuses = []workflows.Status{
	workflows.StatusDocumentReview,
	workflows.StatusPendingAdminApproval,
	workflows.StatusInspectionComplete,
}

// QueueItem is one record awaiting admin attention
type QueueItem struct {
	PropertyID    uuid.UUID        `json:"property_id" db:"property_id"`
	Title         string           `json:"title" db:"title"`
	SellerName    string           `json:"seller_name" db:"seller_name"`
	SellerEmail   string           `json:"seller_email" db:"seller_email"`
	City          string           `json:"city" db:"city"`
	Price         float64          `json:"price" db:"price"`
	Status        workflows.Status `json:"status" db:"status"`
	PaymentStatus string           `json:"payment_status" db:"payment_status"`
	FeeAmount     float64          `json:"fee_amount" db:"fee_amount"`
	SubmittedAt   time.Time        `json:"submitted_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// QueueFilter narrows the pending queue
type QueueFilter struct {
	Status   *workflows.Status `form:"status"`
	Page     int               `form:"page"`
	PageSize int               `form:"page_size"`
}

func (f *QueueFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 200 {
		f.PageSize = 50
	}
}

// Stats summarises verification outcomes
type Stats struct {
	Pending  int                      `json:"pending"`
	Approved int                      `json:"approved"`
	Rejected int                      `json:"rejected"`
	Total    int                      `json:"total"`
	ByStatus map[workflows.Status]int `json:"by_status"`
}

// statsFromCounts folds per-status counts into Stats
func statsFromCounts(counts map[workflows.Status]int) *Stats {
	s := &Stats{ByStatus: counts}
	pending := make(map[workflows.Status]bool, len(PendingStatuses))
	for _, p := range PendingStatuses {
		pending[p] = true
	}
	for status, n := range counts {
		s.Total += n
		switch {
		case status == workflows.StatusVerified:
			s.Approved += n
		case status == workflows.StatusRejected:
			s.Rejected += n
		case pending[status]:
			s.Pending += n
		}
	}
	return s
}
