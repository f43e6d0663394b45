package documents

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

type FileType string

const (
	FileTypePDF   FileType = "PDF"
	FileTypeImage FileType = "IMAGE"
)

var contentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeImage,
	"image/png":       FileTypeImage,
	"image/webp":      FileTypeImage,
}

var extensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// detectContentType trusts the declared content type when it is known and
// falls back to the file extension
func detectContentType(declared, filename string) (string, FileType, bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if ft, ok := contentTypes[ct]; ok {
		return ct, ft, true
	}
	if ct, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct, contentTypes[ct], true
	}
	return "", "", false
}

// File is one uploaded file
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadRequest is a legal document upload for a property
type UploadRequest struct {
	PropertyID   uuid.UUID
	DocumentType verification.DocumentType
	File         File
	Actor        auth.Actor
}

// PhotoRequest is a batch of property photos
type PhotoRequest struct {
	PropertyID uuid.UUID
	Files      []File
	Actor      auth.Actor
}

// Limits bounds accepted uploads
type Limits struct {
	MaxDocumentBytes int64
	MaxPhotoBytes    int64
	MaxPhotos        int
}

func DefaultLimits() Limits {
	return Limits{
		MaxDocumentBytes: 20 << 20,
		MaxPhotoBytes:    10 << 20,
		MaxPhotos:        20,
	}
}
