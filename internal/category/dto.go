package category

import (
	"regexp"
	"strings"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/core/common/validation"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type CreateCategoryDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

func (d *CreateCategoryDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Color = strings.TrimSpace(d.Color)
	d.Icon = strings.TrimSpace(d.Icon)
	if d.Color == "" {
		d.Color = "#6B7280"
	}
	if d.Icon == "" {
		d.Icon = "tag"
	}
}

func (d CreateCategoryDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)
	v.Field("color", d.Color).Matches(colorPattern, "color must be a hex value like #1A2B3C", internal.ErrCodeValidationFailed)
	v.Field("icon", d.Icon).MaxLength(50)
	return v.Validate()
}

type SetActiveDTO struct {
	IsActive *bool `json:"is_active"`
}

func (d SetActiveDTO) Validate() *internal.AppError {
	if d.IsActive == nil {
		return internal.NewValidationFieldError("is_active", "is_active is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}
