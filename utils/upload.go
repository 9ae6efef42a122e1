// utils/upload.go - Upload naming and extension checks
package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AllowedDocumentExt reports whether the uploaded filename carries one of
// the accepted document extensions, e.g. ".pdf".
func AllowedDocumentExt(filename string, allowed ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// StoredDocumentName builds the storage key for an uploaded document as
// <prefix>/<userID>_<random><ext>. The original filename never reaches
// storage; it is kept in the database for downloads.
func StoredDocumentName(prefix string, userID int, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s/%d_%s%s", prefix, userID, random, ext)
}
