package export

import (
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/core/common/validation"
	"github.com/frahmantamala/expenseflow/internal/expense"
)

const dateLayout = "2006-01-02"

// Query is the accounts export filter. Status defaults to approved; From and
// To are optional YYYY-MM-DD bounds on the expense date.
type Query struct {
	Status string
	From   string
	To     string
}

func QueryFromURL(values url.Values) Query {
	return Query{
		Status: values.Get("status"),
		From:   values.Get("from"),
		To:     values.Get("to"),
	}
}

func (q *Query) Normalize() {
	q.Status = strings.ToLower(strings.TrimSpace(q.Status))
	if q.Status == "" {
		q.Status = string(expense.StatusApproved)
	}
	q.From = strings.TrimSpace(q.From)
	q.To = strings.TrimSpace(q.To)
}

func parseDate(field, value string) (*time.Time, *internal.AppError) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, internal.NewValidationFieldError(field, field+" must be formatted as YYYY-MM-DD", internal.ErrCodeInvalidDate)
	}
	return &t, nil
}

// Filter validates the query and turns it into a repository filter.
func (q Query) Filter(orgID string) (expense.ExportFilter, *internal.AppError) {
	v := validation.NewValidator()
	v.Field("status", q.Status).OneOf([]string{
		string(expense.StatusApproved),
		string(expense.StatusReimbursed),
	}, internal.ErrCodeInvalidExpenseStatus)
	if err := v.Validate(); err != nil {
		return expense.ExportFilter{}, err
	}

	from, err := parseDate("from", q.From)
	if err != nil {
		return expense.ExportFilter{}, err
	}
	to, err := parseDate("to", q.To)
	if err != nil {
		return expense.ExportFilter{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return expense.ExportFilter{}, internal.NewValidationFieldError("to", "to must not be before from", internal.ErrCodeInvalidDate)
	}

	return expense.ExportFilter{
		OrganizationID: orgID,
		Status:         expense.Status(q.Status),
		From:           from,
		To:             to,
	}, nil
}
