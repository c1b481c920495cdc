package receipt

import (
	"strings"
	"time"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/core/common/validation"
)

type UploadURLDTO struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

func (d *UploadURLDTO) Normalize() {
	d.FileName = strings.TrimSpace(d.FileName)
	d.ContentType = strings.ToLower(strings.TrimSpace(d.ContentType))
}

func (d UploadURLDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("file_name", d.FileName).Required().MaxLength(255)
	v.Field("content_type", d.ContentType).Required().Custom(func(value interface{}) *internal.AppError {
		if !AllowedContentType(value.(string)) {
			return internal.NewValidationError("content_type must be an image or application/pdf", internal.ErrCodeInvalidReceipt)
		}
		return nil
	})
	return v.Validate()
}

// UploadURL is returned before the client PUTs the file. Key goes into the
// expense's receipt_key afterwards.
type UploadURL struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type DownloadURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
