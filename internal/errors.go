package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeUnavailable  ErrorType = "SERVICE_UNAVAILABLE"
)

type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount      ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidTitle       ErrorCode = "INVALID_TITLE"
	ErrCodeInvalidCurrency    ErrorCode = "INVALID_CURRENCY"
	ErrCodeInvalidCategory    ErrorCode = "INVALID_CATEGORY"
	ErrCodeInvalidDate        ErrorCode = "INVALID_DATE"
	ErrCodeInvalidReceipt     ErrorCode = "INVALID_RECEIPT"
	ErrCodeInvalidEmail       ErrorCode = "INVALID_EMAIL"
	ErrCodeWeakPassword       ErrorCode = "WEAK_PASSWORD"
	ErrCodeInvalidRole        ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidOrgCode     ErrorCode = "INVALID_ORGANIZATION_CODE"
	ErrCodeInvalidRequestBody ErrorCode = "INVALID_REQUEST_BODY"

	ErrCodeExpenseNotFound      ErrorCode = "EXPENSE_NOT_FOUND"
	ErrCodeCategoryNotFound     ErrorCode = "CATEGORY_NOT_FOUND"
	ErrCodeMembershipNotFound   ErrorCode = "MEMBERSHIP_NOT_FOUND"
	ErrCodeOrganizationNotFound ErrorCode = "ORGANIZATION_NOT_FOUND"
	ErrCodeProfileNotFound      ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeReceiptNotFound      ErrorCode = "RECEIPT_NOT_FOUND"

	ErrCodeUnauthorizedAccess   ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeInvalidExpenseStatus ErrorCode = "INVALID_EXPENSE_STATUS"
	ErrCodeNoMembership         ErrorCode = "NO_MEMBERSHIP"
	ErrCodeRoleUnassigned       ErrorCode = "ROLE_UNASSIGNED"
	ErrCodeInsufficientRole     ErrorCode = "INSUFFICIENT_ROLE"
	ErrCodeRoleNotAssignable    ErrorCode = "ROLE_NOT_ASSIGNABLE"
	ErrCodeOrganizationLoad     ErrorCode = "ORGANIZATION_LOAD_FAILED"
	ErrCodeMultipleMemberships  ErrorCode = "MULTIPLE_MEMBERSHIPS"

	ErrCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrCodeSlugTaken          ErrorCode = "SLUG_TAKEN"
	ErrCodeDuplicateCategory  ErrorCode = "DUPLICATE_CATEGORY"
	ErrCodeMembershipExists   ErrorCode = "MEMBERSHIP_EXISTS"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenRevoked       ErrorCode = "TOKEN_REVOKED"
	ErrCodeMagicLinkInvalid   ErrorCode = "MAGIC_LINK_INVALID"

	ErrCodeStorageDisabled ErrorCode = "STORAGE_DISABLED"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// AppError is the error shape every service returns to the transport layer.
// Redirect names the client route to fall back to when the error is shown.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Redirect   string      `json:"redirect,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so sentinel errors survive WithCause copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy of e carrying cause. Sentinels stay untouched.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *AppError) WithRedirect(route string) *AppError {
	cp := *e
	cp.Redirect = route
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewUnavailableError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

var (
	ErrExpenseNotFound      = NewNotFoundError("Expense not found", ErrCodeExpenseNotFound)
	ErrCategoryNotFound     = NewNotFoundError("Category not found", ErrCodeCategoryNotFound)
	ErrMembershipNotFound   = NewNotFoundError("Membership not found", ErrCodeMembershipNotFound)
	ErrOrganizationNotFound = NewNotFoundError("Organization not found", ErrCodeOrganizationNotFound)
	ErrProfileNotFound      = NewNotFoundError("Profile not found", ErrCodeProfileNotFound)
	ErrReceiptNotFound      = NewNotFoundError("Expense has no receipt", ErrCodeReceiptNotFound)

	ErrUnauthorizedAccess   = NewForbiddenError("Unauthorized access to expense", ErrCodeUnauthorizedAccess)
	ErrInvalidExpenseStatus = NewConflictError("Invalid expense status for this operation", ErrCodeInvalidExpenseStatus)
	ErrNoMembership         = NewForbiddenError("You are not a member of any organization", ErrCodeNoMembership)
	ErrRoleUnassigned       = NewForbiddenError("Your role has not been assigned yet", ErrCodeRoleUnassigned)
	ErrInsufficientRole     = NewForbiddenError("Your role does not allow this action", ErrCodeInsufficientRole)
	ErrRoleNotAssignable    = NewForbiddenError("This role cannot be assigned", ErrCodeRoleNotAssignable)
	ErrOrganizationLoad     = &AppError{Type: ErrorTypeInternal, Code: ErrCodeOrganizationLoad, Message: "Could not load organization", StatusCode: http.StatusInternalServerError}
	ErrMultipleMemberships  = NewConflictError("Identity belongs to more than one organization", ErrCodeMultipleMemberships)

	ErrEmailTaken         = NewConflictError("An account with this email already exists", ErrCodeEmailTaken)
	ErrSlugTaken          = NewConflictError("Organization code is already taken", ErrCodeSlugTaken)
	ErrDuplicateCategory  = NewConflictError("Category already exists", ErrCodeDuplicateCategory)
	ErrMembershipExists   = NewConflictError("Identity already has a membership", ErrCodeMembershipExists)
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrTokenRevoked       = NewUnauthorizedError("Token has been revoked", ErrCodeTokenRevoked)
	ErrMagicLinkInvalid   = NewUnauthorizedError("Magic link is invalid or has expired", ErrCodeMagicLinkInvalid)

	ErrStorageDisabled = NewUnavailableError("Receipt storage is not configured", ErrCodeStorageDisabled)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     ErrorType   `json:"type"`
		Code     ErrorCode   `json:"code"`
		Message  string      `json:"message"`
		Details  interface{} `json:"details,omitempty"`
		Redirect string      `json:"redirect,omitempty"`
	}{
		Type:     e.Type,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Redirect: e.Redirect,
	})
}
