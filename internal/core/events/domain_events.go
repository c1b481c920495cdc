package events

const (
	OrganizationCreated   = "organization.created"
	MembershipJoined      = "membership.joined"
	MembershipRoleChanged = "membership.role_changed"
	ExpenseSubmitted      = "expense.submitted"
	ExpenseApproved       = "expense.approved"
	ExpenseRejected       = "expense.rejected"
	ExpenseReimbursed     = "expense.reimbursed"
	MagicLinkRequested    = "identity.magic_link_requested"
)

type OrganizationCreatedEvent struct {
	BaseEvent
	OrganizationID string `json:"organization_id"`
	Slug           string `json:"slug"`
	CreatedBy      string `json:"created_by"`
}

func NewOrganizationCreatedEvent(orgID, slug, createdBy string) *OrganizationCreatedEvent {
	return &OrganizationCreatedEvent{
		BaseEvent: NewBaseEvent(OrganizationCreated, map[string]interface{}{
			"organization_id": orgID,
			"slug":            slug,
			"created_by":      createdBy,
		}),
		OrganizationID: orgID,
		Slug:           slug,
		CreatedBy:      createdBy,
	}
}

type MembershipEvent struct {
	BaseEvent
	MembershipID   string `json:"membership_id"`
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
	PreviousRole   string `json:"previous_role,omitempty"`
	ChangedBy      string `json:"changed_by,omitempty"`
}

func NewMembershipJoinedEvent(membershipID, orgID, userID, role string) *MembershipEvent {
	return &MembershipEvent{
		BaseEvent: NewBaseEvent(MembershipJoined, map[string]interface{}{
			"membership_id":   membershipID,
			"organization_id": orgID,
			"user_id":         userID,
			"role":            role,
		}),
		MembershipID:   membershipID,
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}
}

func NewMembershipRoleChangedEvent(membershipID, orgID, userID, previous, role, changedBy string) *MembershipEvent {
	return &MembershipEvent{
		BaseEvent: NewBaseEvent(MembershipRoleChanged, map[string]interface{}{
			"membership_id":   membershipID,
			"organization_id": orgID,
			"user_id":         userID,
			"previous_role":   previous,
			"role":            role,
			"changed_by":      changedBy,
		}),
		MembershipID:   membershipID,
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		PreviousRole:   previous,
		ChangedBy:      changedBy,
	}
}

// ExpenseEvent covers submission and every status decision.
type ExpenseEvent struct {
	BaseEvent
	ExpenseID      string `json:"expense_id"`
	OrganizationID string `json:"organization_id"`
	SubmitterID    string `json:"submitter_id"`
	ActorID        string `json:"actor_id"`
	Title          string `json:"title"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Reason         string `json:"reason,omitempty"`
}

func NewExpenseEvent(eventType, expenseID, orgID, submitterID, actorID, title, amount, currency, reason string) *ExpenseEvent {
	return &ExpenseEvent{
		BaseEvent: NewBaseEvent(eventType, map[string]interface{}{
			"expense_id":      expenseID,
			"organization_id": orgID,
			"submitter_id":    submitterID,
			"actor_id":        actorID,
			"amount":          amount,
			"currency":        currency,
		}),
		ExpenseID:      expenseID,
		OrganizationID: orgID,
		SubmitterID:    submitterID,
		ActorID:        actorID,
		Title:          title,
		Amount:         amount,
		Currency:       currency,
		Reason:         reason,
	}
}

// MagicLinkEvent carries the plaintext link; it is never logged.
type MagicLinkEvent struct {
	BaseEvent
	Email     string `json:"-"`
	Link      string `json:"-"`
	ExpiresIn string `json:"-"`
}

func NewMagicLinkEvent(email, link, expiresIn string) *MagicLinkEvent {
	return &MagicLinkEvent{
		BaseEvent: NewBaseEvent(MagicLinkRequested, nil),
		Email:     email,
		Link:      link,
		ExpiresIn: expiresIn,
	}
}
