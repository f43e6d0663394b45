package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

// Gateway is a simulated payment provider. Charges are idempotent per
// intent key, so a retried pay request never collects the fee twice.
type Gateway struct {
	repo   Repository
	mode   Mode
	logger *zap.Logger
	mu     sync.Mutex
	now    func() time.Time
}

func NewGateway(repo Repository, mode Mode, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == "" {
		mode = ModeInstant
	}
	return &Gateway{repo: repo, mode: mode, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// newPaymentID returns PAY_ followed by 12 uppercase hex characters
func newPaymentID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY_" + strings.ToUpper(raw[:12])
}

// Charge implements verification.PaymentGateway
func (g *Gateway) Charge(ctx context.Context, intent verification.PaymentIntent) (*verification.PaymentReceipt, error) {
	if intent.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	method := Method(intent.Method)
	if method == "" {
		method = MethodCard
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, intent.Method)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	existing, err := g.repo.GetByIdempotencyKey(ctx, intent.IdempotencyKey)
	switch {
	case err == nil:
		g.logger.Info("replayed payment intent",
			zap.String("payment_id", existing.PaymentID),
			zap.String("property_id", intent.PropertyID.String()))
		return receipt(existing), nil
	case !errors.Is(err, ErrTransactionNotFound):
		return nil, err
	}

	tx := &Transaction{
		ID:             uuid.New(),
		PaymentID:      newPaymentID(),
		IdempotencyKey: intent.IdempotencyKey,
		PropertyID:     intent.PropertyID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		Method:         method,
		Status:         TransactionPaid,
	}
	if g.mode == ModeDeferred || method == MethodBankTransfer {
		tx.Status = TransactionRequested
	} else {
		at := g.now()
		tx.SettledAt = &at
	}
	if provider, mErr := json.Marshal(map[string]string{"mode": string(g.mode), "method": string(method)}); mErr == nil {
		tx.ProviderStatus = datatypes.JSON(provider)
	}
	if err := g.repo.Create(ctx, tx); err != nil {
		return nil, err
	}

	g.logger.Info("payment created",
		zap.String("payment_id", tx.PaymentID),
		zap.String("property_id", tx.PropertyID.String()),
		zap.String("status", string(tx.Status)),
		zap.Float64("amount", tx.Amount))
	return receipt(tx), nil
}

// Settle marks a requested payment as paid
func (g *Gateway) Settle(ctx context.Context, paymentID string) (*Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.repo.MarkPaid(ctx, paymentID, g.now())
}

func receipt(tx *Transaction) *verification.PaymentReceipt {
	status := verification.PaymentPaid
	if tx.Status == TransactionRequested {
		status = verification.PaymentRequested
	}
	return &verification.PaymentReceipt{PaymentID: tx.PaymentID, Status: status, Amount: tx.Amount}
}
