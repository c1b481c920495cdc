package identity

import (
	"strings"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/core/common/validation"
)

const minPasswordLength = 8

type SignUpDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (d *SignUpDTO) Normalize() {
	d.Email = normalizeEmail(d.Email)
	d.FullName = strings.TrimSpace(d.FullName)
}

func (d SignUpDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Tag("email", "email is invalid", internal.ErrCodeInvalidEmail)
	v.Field("password", d.Password).Required().MinLength(minPasswordLength, internal.ErrCodeWeakPassword)
	v.Field("full_name", d.FullName).Required().MaxLength(255)
	return v.Validate()
}

type SignInDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d SignInDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

type MagicLinkDTO struct {
	Email string `json:"email"`
}

func (d MagicLinkDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Tag("email", "email is invalid", internal.ErrCodeInvalidEmail)
	return v.Validate()
}

type VerifyMagicLinkDTO struct {
	Token string `json:"token"`
}

func (d VerifyMagicLinkDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("token", d.Token).Required()
	return v.Validate()
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	return v.Validate()
}

type SignOutDTO struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
