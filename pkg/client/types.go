package client

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type Profile struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FullName    string  `json:"full_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	HasPassword bool    `json:"has_password"`
}

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type Membership struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
}

const (
	StateNoMembership = "no_membership"
	StateUnassigned   = "unassigned"
	StateActive       = "active"
)

// Resolution is the server's verdict on where the identity belongs.
type Resolution struct {
	State        string        `json:"state"`
	Role         string        `json:"role,omitempty"`
	Route        string        `json:"route"`
	Membership   *Membership   `json:"membership,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
}

type SessionView struct {
	User       *User      `json:"user"`
	Profile    *Profile   `json:"profile,omitempty"`
	Resolution Resolution `json:"resolution"`
	Route      string     `json:"route"`
}

type Member struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type MembersView struct {
	Members         []Member `json:"members"`
	AssignableRoles []string `json:"assignable_roles"`
}

type OnboardRequest struct {
	OrganizationName string `json:"organization_name,omitempty"`
	Code             string `json:"code,omitempty"`
}

type OnboardResult struct {
	Organization *Organization `json:"organization"`
	Membership   *Membership   `json:"membership"`
	Created      bool          `json:"created"`
	Route        string        `json:"route"`
}

type SubmitExpenseRequest struct {
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description,omitempty"`
	VendorName  string          `json:"vendor_name,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	ExpenseDate string          `json:"expense_date,omitempty"`
	ReceiptKey  string          `json:"receipt_key,omitempty"`
}

type Expense struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	UserID          string          `json:"user_id"`
	CategoryID      *string         `json:"category_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Title           string          `json:"title"`
	VendorName      *string         `json:"vendor_name,omitempty"`
	ExpenseDate     string          `json:"expense_date"`
	Status          string          `json:"status"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
}

type expensePage struct {
	Expenses []Expense `json:"expenses"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
