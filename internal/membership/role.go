package membership

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleHR         Role = "hr"
	RoleAccounts   Role = "accounts"
	RoleEmployee   Role = "employee"
	RoleUnassigned Role = "unassigned"
)

// AssignableRoles are the roles an admin may hand out. Admin is not among them.
var AssignableRoles = []Role{RoleUnassigned, RoleEmployee, RoleHR, RoleAccounts}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleAccounts, RoleEmployee, RoleUnassigned:
		return true
	}
	return false
}

func (r Role) Assignable() bool {
	for _, a := range AssignableRoles {
		if a == r {
			return true
		}
	}
	return false
}

func (r Role) In(roles ...Role) bool {
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// Role groups for the actions gated in the router.
var (
	SubmitRoles    = []Role{RoleAdmin, RoleHR, RoleAccounts, RoleEmployee}
	ApproverRoles  = []Role{RoleHR, RoleAdmin}
	AccountsRoles  = []Role{RoleAccounts, RoleAdmin}
	AdminRoles     = []Role{RoleAdmin}
	ExpenseReaders = []Role{RoleHR, RoleAccounts, RoleAdmin}
)

func (r Role) CanReadOrgExpenses() bool { return r.In(ExpenseReaders...) }

func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
