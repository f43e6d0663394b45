package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Repository persists fee transactions
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByIdempotencyKey(ctx context.Context, key string) (*Transaction, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*Transaction, error)
	MarkPaid(ctx context.Context, paymentID string, at time.Time) (*Transaction, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Migrate creates the payment transaction table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Transaction{})
}

func (r *repository) Create(ctx context.Context, tx *Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return nil
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*Transaction, error) {
	return r.first(ctx, "idempotency_key = ?", key)
}

func (r *repository) GetByPaymentID(ctx context.Context, paymentID string) (*Transaction, error) {
	return r.first(ctx, "payment_id = ?", paymentID)
}

func (r *repository) first(ctx context.Context, query string, arg interface{}) (*Transaction, error) {
	var tx Transaction
	err := r.db.WithContext(ctx).Where(query, arg).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment transaction: %w", err)
	}
	return &tx, nil
}

func (r *repository) MarkPaid(ctx context.Context, paymentID string, at time.Time) (*Transaction, error) {
	res := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("payment_id = ?", paymentID).
		Updates(map[string]interface{}{"status": TransactionPaid, "settled_at": at})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to settle payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrTransactionNotFound
	}
	return r.GetByPaymentID(ctx, paymentID)
}

// MemoryRepository keeps transactions in process memory
type MemoryRepository struct {
	mu    sync.Mutex
	byKey map[string]*Transaction
	byID  map[string]*Transaction
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byKey: make(map[string]*Transaction),
		byID:  make(map[string]*Transaction),
	}
}

func (m *MemoryRepository) Create(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[tx.IdempotencyKey]; ok {
		return fmt.Errorf("duplicate idempotency key %q", tx.IdempotencyKey)
	}
	cp := *tx
	m.byKey[tx.IdempotencyKey] = &cp
	m.byID[tx.PaymentID] = &cp
	return nil
}

func (m *MemoryRepository) GetByIdempotencyKey(ctx context.Context, key string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byKey[key]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *MemoryRepository) GetByPaymentID(ctx context.Context, paymentID string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byID[paymentID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *MemoryRepository) MarkPaid(ctx context.Context, paymentID string, at time.Time) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byID[paymentID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	tx.Status = TransactionPaid
	tx.SettledAt = &at
	cp := *tx
	return &cp, nil
}
