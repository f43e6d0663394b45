package payments

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrTransactionNotFound = errors.New("payment transaction not found")
	ErrUnsupportedMethod   = errors.New("unsupported payment method")
	ErrInvalidAmount       = errors.New("payment amount must be positive")
)

// Method represents the ways a seller can pay the verification fee
type Method string

const (
	MethodCard         Method = "card"
	MethodUPI          Method = "upi"
	MethodNetBanking   Method = "net_banking"
	MethodBankTransfer Method = "bank_transfer"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodCard, MethodUPI, MethodNetBanking, MethodBankTransfer:
		return true
	}
	return false
}

// TransactionStatus represents the state of a fee collection
type TransactionStatus string

const (
	TransactionRequested TransactionStatus = "requested"
	TransactionPaid      TransactionStatus = "paid"
)

// Mode selects how the simulated gateway settles charges
type Mode string

const (
	// ModeInstant settles every charge immediately
	ModeInstant Mode = "instant"
	// ModeDeferred leaves charges requested until settled by callback.
	// Bank transfers are always deferred.
	ModeDeferred Mode = "deferred"
)

// Transaction records one verification fee collection
type Transaction struct {
	ID             uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	PaymentID      string            `json:"payment_id" gorm:"uniqueIndex;not null"`
	IdempotencyKey string            `json:"-" gorm:"uniqueIndex;not null"`
	PropertyID     uuid.UUID         `json:"property_id" gorm:"type:uuid;not null;index"`
	Amount         float64           `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency       string            `json:"currency" gorm:"not null"`
	Method         Method            `json:"method" gorm:"not null"`
	Status         TransactionStatus `json:"status" gorm:"not null;index"`
	ProviderStatus datatypes.JSON    `json:"provider_status,omitempty" gorm:"type:jsonb"`
	SettledAt      *time.Time        `json:"settled_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Transaction) TableName() string { return "payment_transactions" }
