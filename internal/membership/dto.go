package membership

import (
	"strings"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/core/common/validation"
)

type AssignRoleDTO struct {
	Role string `json:"role"`
}

func (d *AssignRoleDTO) Normalize() {
	d.Role = strings.ToLower(strings.TrimSpace(d.Role))
}

func (d AssignRoleDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("role", d.Role).Required().OneOf(RoleStrings(AssignableRoles), internal.ErrCodeInvalidRole)
	return v.Validate()
}

// MembersView is what the members screen renders.
type MembersView struct {
	Members         []*Member `json:"members"`
	AssignableRoles []Role    `json:"assignable_roles"`
}
