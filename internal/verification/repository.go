package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// Repository persists verification records and their activity log
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	// Save replaces the stored record if its version still equals
	// expectedVersion and appends entry in the same transaction.
	Save(ctx context.Context, rec *Record, expectedVersion int, entry *ActivityEntry) error
	ListByStatus(ctx context.Context, statuses []workflows.Status, limit int) ([]*Record, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*Record, error)
	ListStalledAnalyses(ctx context.Context, startedBefore time.Time, limit int) ([]*Record, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new gorm-backed repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Migrate creates or updates the verification tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Record{}, &ActivityEntry{})
}

func (r *repository) Create(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("ActivityLog").Create(rec).Error; err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}
		if len(rec.ActivityLog) > 0 {
			if err := tx.Create(&rec.ActivityLog).Error; err != nil {
				return fmt.Errorf("failed to create activity: %w", err)
			}
		}
		return nil
	})
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	var rec Record
	err := r.db.WithContext(ctx).
		Preload("ActivityLog", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		First(&rec, "property_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return &rec, nil
}

func (r *repository) Save(ctx context.Context, rec *Record, expectedVersion int, entry *ActivityEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Record{}).
			Where("property_id = ? AND version = ?", rec.PropertyID, expectedVersion).
			Select("*").
			Omit("PropertyID", "CreatedAt", "ActivityLog").
			Updates(rec)
		if res.Error != nil {
			return fmt.Errorf("failed to save record: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleRecord
		}
		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to append activity: %w", err)
			}
		}
		return nil
	})
}

func (r *repository) ListByStatus(ctx context.Context, statuses []workflows.Status, limit int) ([]*Record, error) {
	var recs []*Record
	q := r.db.WithContext(ctx).Where("status IN ?", statuses).Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return recs, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID string) ([]*Record, error) {
	var recs []*Record
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seller records: %w", err)
	}
	return recs, nil
}

func (r *repository) ListStalledAnalyses(ctx context.Context, startedBefore time.Time, limit int) ([]*Record, error) {
	var recs []*Record
	q := r.db.WithContext(ctx).
		Where("status = ? AND analysis_started_at < ? AND analysis_failed_at IS NULL",
			workflows.StatusAIAnalyzing, startedBefore).
		Order("analysis_started_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list stalled analyses: %w", err)
	}
	return recs, nil
}
