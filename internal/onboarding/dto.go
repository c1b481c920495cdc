package onboarding

import (
	"strings"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/core/common/validation"
	"github.com/frahmantamala/expenseflow/internal/membership"
	"github.com/frahmantamala/expenseflow/internal/organization"
)

type OnboardDTO struct {
	OrganizationName string `json:"organization_name"`
	Code             string `json:"code"`
}

func (d *OnboardDTO) Normalize() {
	d.OrganizationName = strings.TrimSpace(d.OrganizationName)
	d.Code = strings.TrimSpace(d.Code)
}

// Slug is the normalized code, or the slug derived from the name.
func (d OnboardDTO) Slug() string {
	return organization.ResolveSlug(d.Code, d.OrganizationName)
}

// DisplayName is the name a newly created organization gets.
func (d OnboardDTO) DisplayName() string {
	if d.OrganizationName != "" {
		return d.OrganizationName
	}
	return d.Slug()
}

func (d OnboardDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("organization_name", d.OrganizationName).MaxLength(255)
	v.Field("code", d.Code).MaxLength(100)
	if err := v.Validate(); err != nil {
		return err
	}
	if d.Slug() == "" {
		return internal.NewValidationFieldError("code", "an organization name or code is required", internal.ErrCodeInvalidOrgCode)
	}
	return nil
}

type Result struct {
	Organization *organization.Organization `json:"organization"`
	Membership   *membership.Membership     `json:"membership"`
	Created      bool                       `json:"created"`
	Route        string                     `json:"route"`
}
