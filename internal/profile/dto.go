package profile

import (
	"strings"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/core/common/validation"
)

type UpdateProfileDTO struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func (d *UpdateProfileDTO) Normalize() {
	if d.FullName != nil {
		trimmed := strings.TrimSpace(*d.FullName)
		d.FullName = &trimmed
	}
	if d.AvatarURL != nil {
		trimmed := strings.TrimSpace(*d.AvatarURL)
		d.AvatarURL = &trimmed
	}
}

func (d UpdateProfileDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.FullName != nil {
		v.Field("full_name", *d.FullName).Required().MaxLength(255)
	}
	v.Field("avatar_url", d.AvatarURL).MaxLength(2048).Tag("url", "avatar_url must be a valid URL", internal.ErrCodeValidationFailed)
	return v.Validate()
}
