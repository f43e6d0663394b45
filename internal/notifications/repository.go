package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryRepository stores delivery attempts
type DeliveryRepository interface {
	Record(ctx context.Context, log *DeliveryLog) error
	ListForProperty(ctx context.Context, propertyID uuid.UUID, limit int) ([]DeliveryLog, error)
}

type deliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

// Migrate creates the delivery log table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&DeliveryLog{})
}

func (r *deliveryRepository) Record(ctx context.Context, log *DeliveryLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

func (r *deliveryRepository) ListForProperty(ctx context.Context, propertyID uuid.UUID, limit int) ([]DeliveryLog, error) {
	var logs []DeliveryLog
	q := r.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	return logs, nil
}
