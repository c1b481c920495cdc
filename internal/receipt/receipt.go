package receipt

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const keyPrefix = "receipts/"

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Keys issues and checks storage keys of the form
// receipts/<organization_id>/<uuid><ext>.
type Keys struct{}

func (Keys) New(orgID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return keyPrefix + orgID + "/" + uuid.NewString() + ext
}

// OwnsKey reports whether key lives under the organization's prefix.
func (Keys) OwnsKey(orgID, key string) bool {
	if orgID == "" || strings.Contains(key, "..") {
		return false
	}
	prefix := keyPrefix + orgID + "/"
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}

// AllowedContentType accepts images and PDF documents.
func AllowedContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "application/pdf" || (strings.HasPrefix(ct, "image/") && len(ct) > len("image/"))
}
