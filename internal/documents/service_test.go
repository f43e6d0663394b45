package documents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/storage"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// MockVerifier is a mock implementation of the Verifier interface
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Get(ctx context.Context, id uuid.UUID) (*verification.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Record), args.Error(1)
}

func (m *MockVerifier) UploadDocument(ctx context.Context, id uuid.UUID, actor auth.Actor, doc verification.DocumentUpload) (*verification.Outcome, error) {
	args := m.Called(ctx, id, actor, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Outcome), args.Error(1)
}

func (m *MockVerifier) UploadPhotos(ctx context.Context, id uuid.UUID, actor auth.Actor, photos []verification.Photo) (*verification.Outcome, error) {
	args := m.Called(ctx, id, actor, photos)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Outcome), args.Error(1)
}

var seller = auth.Actor{ID: "seller-1", Role: auth.RoleSeller}

func TestUploadDocument(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore("http://files")
	verifier := &MockVerifier{}
	propertyID := uuid.New()

	outcome := &verification.Outcome{Record: &verification.Record{Status: workflows.StatusDocumentReview}}
	verifier.On("UploadDocument", ctx, propertyID, seller, mock.MatchedBy(func(d verification.DocumentUpload) bool {
		return d.Type == verification.DocumentPatta && strings.HasPrefix(d.StorageKey, "properties/"+propertyID.String()+"/documents/patta/")
	})).Return(outcome, nil)

	svc := NewService(store, verifier, DefaultLimits(), nil)
	out, err := svc.UploadDocument(ctx, UploadRequest{
		PropertyID:   propertyID,
		DocumentType: verification.DocumentPatta,
		File:         File{Name: "patta scan.pdf", ContentType: "application/pdf", Size: 4, Content: strings.NewReader("%PDF")},
		Actor:        seller,
	})
	require.NoError(t, err)
	assert.Equal(t, outcome, out)
	assert.Len(t, store.Keys(), 1)
	assert.NotContains(t, store.Keys()[0], " ")
	verifier.AssertExpectations(t)
}

func TestUploadDocumentRefusedRemovesObject(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore("http://files")
	verifier := &MockVerifier{}
	verifier.On("UploadDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, workflows.Illegal(workflows.StatusPending, workflows.ActionUploadDocument, ""))

	svc := NewService(store, verifier, DefaultLimits(), nil)
	_, err := svc.UploadDocument(ctx, UploadRequest{
		PropertyID:   uuid.New(),
		DocumentType: verification.DocumentEC,
		File:         File{Name: "ec.pdf", Size: 4, Content: strings.NewReader("%PDF")},
		Actor:        seller,
	})
	assert.ErrorIs(t, err, workflows.ErrIllegalTransition)
	assert.Empty(t, store.Keys())
}

func TestUploadDocumentValidation(t *testing.T) {
	svc := NewService(storage.NewMemoryStore(""), &MockVerifier{}, DefaultLimits(), nil)

	_, err := svc.UploadDocument(context.Background(), UploadRequest{
		DocumentType: "passport",
		File:         File{Name: "a.pdf", Content: strings.NewReader("x")},
	})
	assert.ErrorIs(t, err, verification.ErrInvalidInput)

	_, err = svc.UploadDocument(context.Background(), UploadRequest{
		DocumentType: verification.DocumentPatta,
		File:         File{Name: "a.exe", ContentType: "application/octet-stream", Content: strings.NewReader("x")},
	})
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = svc.UploadDocument(context.Background(), UploadRequest{
		DocumentType: verification.DocumentPatta,
		File:         File{Name: "a.pdf", Size: 1 << 30, Content: strings.NewReader("x")},
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUploadPhotos(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore("http://files")
	verifier := &MockVerifier{}
	propertyID := uuid.New()
	verifier.On("UploadPhotos", ctx, propertyID, seller, mock.MatchedBy(func(p []verification.Photo) bool {
		return len(p) == 2 && p[0].UploadedAt.Equal(p[1].UploadedAt)
	})).Return(&verification.Outcome{Record: &verification.Record{Status: workflows.StatusPending}}, nil)

	svc := NewService(store, verifier, DefaultLimits(), nil)
	_, err := svc.UploadPhotos(ctx, PhotoRequest{
		PropertyID: propertyID,
		Actor:      seller,
		Files: []File{
			{Name: "living.jpg", Content: strings.NewReader("jpg")},
			{Name: "kitchen.png", ContentType: "image/png", Content: strings.NewReader("png")},
		},
	})
	require.NoError(t, err)
	assert.Len(t, store.Keys(), 2)

	_, err = svc.UploadPhotos(ctx, PhotoRequest{
		PropertyID: propertyID,
		Files:      []File{{Name: "deed.pdf", Content: strings.NewReader("pdf")}},
	})
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestDownloadURL(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore("http://files")
	require.NoError(t, store.Put(ctx, "k1", strings.NewReader("x"), "application/pdf"))
	docID := uuid.New()
	propertyID := uuid.New()

	verifier := &MockVerifier{}
	verifier.On("Get", ctx, propertyID).Return(&verification.Record{
		Documents: map[verification.DocumentType][]verification.DocumentUpload{
			verification.DocumentPatta: {{ID: docID, StorageKey: "k1"}},
		},
	}, nil)
	verifier.On("Get", ctx, mock.Anything).Return(nil, verification.ErrNotFound)

	svc := NewService(store, verifier, DefaultLimits(), nil)
	url, err := svc.DownloadURL(ctx, propertyID, docID)
	require.NoError(t, err)
	assert.Equal(t, "http://files/k1", url)

	_, err = svc.DownloadURL(ctx, propertyID, uuid.New())
	assert.True(t, errors.Is(err, verification.ErrNotFound))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "evil.pdf", sanitizeFilename("../../evil.pdf"))
	assert.Equal(t, "my_deed_.pdf", sanitizeFilename("my deed?.pdf"))
	assert.Equal(t, "file", sanitizeFilename(""))
}
