package admin

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// Store answers the admin reporting queries
type Store interface {
	PendingQueue(ctx context.Context, filter QueueFilter) ([]QueueItem, int, error)
	CountByStatus(ctx context.Context) (map[workflows.Status]int, error)
}

// PostgresStore runs the reporting queries directly against the records table
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func queueStatuses(filter QueueFilter) []string {
	if filter.Status != nil {
		return []string{string(*filter.Status)}
	}
	out := make([]string, len(PendingStatuses))
	for i, s := range PendingStatuses {
		out[i] = string(s)
	}
	return out
}

func (s *PostgresStore) PendingQueue(ctx context.Context, filter QueueFilter) ([]QueueItem, int, error) {
	filter.normalize()
	statuses := pq.Array(queueStatuses(filter))

	var total int
	countQuery := `SELECT COUNT(*) FROM verification_records WHERE status = ANY($1)`
	if err := s.db.GetContext(ctx, &total, countQuery, statuses); err != nil {
		return nil, 0, fmt.Errorf("failed to count pending queue: %w", err)
	}

	query := `
		SELECT property_id, title, seller_name, seller_email, city, price, status,
			   payment_status, fee_amount, created_at, updated_at
		FROM verification_records
		WHERE status = ANY($1)
		ORDER BY updated_at ASC
		LIMIT $2 OFFSET $3
	`
	items := []QueueItem{}
	offset := (filter.Page - 1) * filter.PageSize
	if err := s.db.SelectContext(ctx, &items, query, statuses, filter.PageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list pending queue: %w", err)
	}
	return items, total, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[workflows.Status]int, error) {
	rows := []struct {
		Status workflows.Status `db:"status"`
		Count  int              `db:"count"`
	}{}
	query := `SELECT status, COUNT(*) AS count FROM verification_records GROUP BY status`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count records by status: %w", err)
	}
	counts := make(map[workflows.Status]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// RecordStore answers the same queries from a verification.Repository, for
// deployments without postgres
type RecordStore struct {
	repo verification.Repository
}

func NewRecordStore(repo verification.Repository) *RecordStore {
	return &RecordStore{repo: repo}
}

func (s *RecordStore) PendingQueue(ctx context.Context, filter QueueFilter) ([]QueueItem, int, error) {
	filter.normalize()
	statuses := PendingStatuses
	if filter.Status != nil {
		statuses = []workflows.Status{*filter.Status}
	}
	recs, err := s.repo.ListByStatus(ctx, statuses, 0)
	if err != nil {
		return nil, 0, err
	}
	start := (filter.Page - 1) * filter.PageSize
	if start > len(recs) {
		start = len(recs)
	}
	end := start + filter.PageSize
	if end > len(recs) {
		end = len(recs)
	}
	items := make([]QueueItem, 0, end-start)
	for _, rec := range recs[start:end] {
		items = append(items, toQueueItem(rec))
	}
	return items, len(recs), nil
}

func (s *RecordStore) CountByStatus(ctx context.Context) (map[workflows.Status]int, error) {
	recs, err := s.repo.ListByStatus(ctx, workflows.CanonicalOrder(), 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[workflows.Status]int)
	for _, rec := range recs {
		counts[rec.Status]++
	}
	return counts, nil
}

func toQueueItem(rec *verification.Record) QueueItem {
	return QueueItem{
		PropertyID:    rec.PropertyID,
		Title:         rec.Title,
		SellerName:    rec.SellerName,
		SellerEmail:   rec.SellerEmail,
		City:          rec.City,
		Price:         rec.Price,
		Status:        rec.Status,
		PaymentStatus: string(rec.PaymentStatus),
		FeeAmount:     rec.FeeAmount,
		SubmittedAt:   rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}
