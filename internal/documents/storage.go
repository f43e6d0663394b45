package documents

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	if base == "" || base == "." || base == "_" {
		return "file"
	}
	return base
}

// DocumentKey is the object key of a legal document
func DocumentKey(propertyID, docID uuid.UUID, docType, fileName string) string {
	return fmt.Sprintf("properties/%s/documents/%s/%s-%s", propertyID, docType, docID, sanitizeFilename(fileName))
}

// PhotoKey is the object key of a property photo
func PhotoKey(propertyID, photoID uuid.UUID, fileName string) string {
	return fmt.Sprintf("properties/%s/photos/%s-%s", propertyID, photoID, sanitizeFilename(fileName))
}
