// Package certificates renders and stores the certificate handed to sellers
// once a listing is verified.
package certificates

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/storage"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// Viewer loads the projected record. Implemented by *verification.Service.
type Viewer interface {
	View(ctx context.Context, id uuid.UUID) (*verification.View, error)
}

// Key returns the object key of a property's certificate
func Key(propertyID uuid.UUID) string {
	return "certificates/" + propertyID.String() + ".pdf"
}

// Issuer writes a certificate to the object store when a record is verified
type Issuer struct {
	viewer Viewer
	store  storage.ObjectStore
	opts   Options
	logger *zap.Logger
}

func NewIssuer(viewer Viewer, store storage.ObjectStore, opts Options, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{viewer: viewer, store: store, opts: opts, logger: logger}
}

// Publish implements verification.Publisher
func (i *Issuer) Publish(ctx context.Context, evt verification.Event) error {
	if evt.To != workflows.StatusVerified {
		return nil
	}
	_, err := i.Issue(ctx, evt.PropertyID, evt.Timestamp)
	return err
}

// Issue renders and stores the certificate, returning its key
func (i *Issuer) Issue(ctx context.Context, propertyID uuid.UUID, issuedAt time.Time) (string, error) {
	view, err := i.viewer.View(ctx, propertyID)
	if err != nil {
		return "", err
	}
	if view.Record.Status != workflows.StatusVerified {
		return "", fmt.Errorf("%w: property %s is %s", workflows.ErrPreconditionUnmet, propertyID, view.Record.Status)
	}
	body, err := Render(view, issuedAt, i.opts)
	if err != nil {
		return "", err
	}
	key := Key(propertyID)
	if err := i.store.Put(ctx, key, bytes.NewReader(body), "application/pdf"); err != nil {
		return "", fmt.Errorf("failed to store certificate: %w", err)
	}
	i.logger.Info("certificate issued", zap.String("property_id", propertyID.String()), zap.String("key", key))
	return key, nil
}
