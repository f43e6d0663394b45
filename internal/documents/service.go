package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/storage"
)

// Verifier records uploads on the verification record
type Verifier interface {
	Get(ctx context.Context, id uuid.UUID) (*verification.Record, error)
	UploadDocument(ctx context.Context, id uuid.UUID, actor auth.Actor, doc verification.DocumentUpload) (*verification.Outcome, error)
	UploadPhotos(ctx context.Context, id uuid.UUID, actor auth.Actor, photos []verification.Photo) (*verification.Outcome, error)
}

type Service interface {
	UploadDocument(ctx context.Context, req UploadRequest) (*verification.Outcome, error)
	UploadPhotos(ctx context.Context, req PhotoRequest) (*verification.Outcome, error)
	DownloadURL(ctx context.Context, propertyID, documentID uuid.UUID) (string, error)
}

type documentService struct {
	store    storage.ObjectStore
	verifier Verifier
	limits   Limits
	logger   *zap.Logger
}

func NewService(store storage.ObjectStore, verifier Verifier, limits Limits, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &documentService{store: store, verifier: verifier, limits: limits, logger: logger}
}

// UploadDocument stores the file and then records it. When the record
// refuses the upload the stored object is removed again.
func (s *documentService) UploadDocument(ctx context.Context, req UploadRequest) (*verification.Outcome, error) {
	if _, err := verification.ParseDocumentType(string(req.DocumentType)); err != nil {
		return nil, err
	}
	if req.File.Size > s.limits.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: %w: %d bytes", verification.ErrInvalidInput, ErrFileTooLarge, req.File.Size)
	}
	contentType, ft, ok := detectContentType(req.File.ContentType, req.File.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", verification.ErrInvalidInput, ErrUnsupportedFile, req.File.Name)
	}

	docID := uuid.New()
	key := DocumentKey(req.PropertyID, docID, string(req.DocumentType), req.File.Name)
	if err := s.store.Put(ctx, key, req.File.Content, contentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	out, err := s.verifier.UploadDocument(ctx, req.PropertyID, req.Actor, verification.DocumentUpload{
		ID:               docID,
		Type:             req.DocumentType,
		OriginalFilename: req.File.Name,
		StorageKey:       key,
		Size:             req.File.Size,
		UploadedAt:       time.Now().UTC(),
		UploadedBy:       req.Actor.Label(),
	})
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}

	s.logger.Info("legal document uploaded",
		zap.String("property_id", req.PropertyID.String()),
		zap.String("document_type", string(req.DocumentType)),
		zap.String("file_type", string(ft)),
		zap.Bool("status_changed", out.Step.Changed()))
	return out, nil
}

// UploadPhotos stores a batch of photos and records them together
func (s *documentService) UploadPhotos(ctx context.Context, req PhotoRequest) (*verification.Outcome, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: at least one photo required", verification.ErrInvalidInput)
	}
	if len(req.Files) > s.limits.MaxPhotos {
		return nil, fmt.Errorf("%w: at most %d photos per upload", verification.ErrInvalidInput, s.limits.MaxPhotos)
	}
	for _, f := range req.Files {
		if f.Size > s.limits.MaxPhotoBytes {
			return nil, fmt.Errorf("%w: %w: %s", verification.ErrInvalidInput, ErrFileTooLarge, f.Name)
		}
		if _, ft, ok := detectContentType(f.ContentType, f.Name); !ok || ft != FileTypeImage {
			return nil, fmt.Errorf("%w: %w: %s", verification.ErrInvalidInput, ErrUnsupportedFile, f.Name)
		}
	}

	at := time.Now().UTC()
	photos := make([]verification.Photo, 0, len(req.Files))
	for _, f := range req.Files {
		contentType, _, _ := detectContentType(f.ContentType, f.Name)
		key := PhotoKey(req.PropertyID, uuid.New(), f.Name)
		if err := s.store.Put(ctx, key, f.Content, contentType); err != nil {
			for _, p := range photos {
				s.discard(ctx, p.Key)
			}
			return nil, fmt.Errorf("failed to store photo: %w", err)
		}
		photos = append(photos, verification.Photo{
			Key:        key,
			Filename:   f.Name,
			UploadedAt: at,
			UploadedBy: req.Actor.Label(),
		})
	}

	out, err := s.verifier.UploadPhotos(ctx, req.PropertyID, req.Actor, photos)
	if err != nil {
		for _, p := range photos {
			s.discard(ctx, p.Key)
		}
		return nil, err
	}
	s.logger.Info("photos uploaded",
		zap.String("property_id", req.PropertyID.String()), zap.Int("count", len(photos)))
	return out, nil
}

// DownloadURL returns a short-lived link to a stored legal document
func (s *documentService) DownloadURL(ctx context.Context, propertyID, documentID uuid.UUID) (string, error) {
	rec, err := s.verifier.Get(ctx, propertyID)
	if err != nil {
		return "", err
	}
	for _, uploads := range rec.Documents {
		for _, d := range uploads {
			if d.ID == documentID {
				return s.store.PresignGet(ctx, d.StorageKey, 15*time.Minute)
			}
		}
	}
	return "", verification.ErrNotFound
}

func (s *documentService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(err))
	}
}
