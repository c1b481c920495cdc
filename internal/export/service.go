package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/frahmantamala/expenseflow/internal"
	expenseDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/expense"
	"github.com/frahmantamala/expenseflow/internal/expense"
	"github.com/frahmantamala/expenseflow/internal/membership"
	"github.com/shopspring/decimal"
)

type RowSource interface {
	ListForExport(ctx context.Context, filter expense.ExportFilter) ([]*expenseDatamodel.ExportRow, error)
}

// Report is what the workbook is rendered from.
type Report struct {
	Organization string
	Status       expense.Status
	Rows         []*expenseDatamodel.ExportRow
	Totals       []CurrencyTotal
}

type CurrencyTotal struct {
	Currency string
	Count    int
	Amount   decimal.Decimal
}

// Filename is the attachment name offered to the browser.
func (r *Report) Filename() string {
	return fmt.Sprintf("expenses-%s-%s.xlsx", r.Organization, r.Status)
}

type Service struct {
	source RowSource
	logger *slog.Logger
}

func NewService(source RowSource, logger *slog.Logger) *Service {
	return &Service{source: source, logger: logger}
}

// Build loads the organization's expenses for accounts and admin and sums
// them per currency.
func (s *Service) Build(ctx context.Context, res membership.Resolution, query Query) (*Report, error) {
	if denial := membership.Deny(res, membership.AccountsRoles...); denial != nil {
		return nil, denial
	}

	query.Normalize()
	filter, verr := query.Filter(res.OrganizationID())
	if verr != nil {
		return nil, verr
	}

	rows, err := s.source.ListForExport(ctx, filter)
	if err != nil {
		s.logger.Error("failed to load expenses for export", "error", err, "organization_id", filter.OrganizationID)
		return nil, internal.NewInternalError("Failed to build export", err)
	}

	report := &Report{
		Organization: res.Organization.Slug,
		Status:       filter.Status,
		Rows:         rows,
		Totals:       totals(rows),
	}

	s.logger.Info("accounts export built",
		"organization_id", filter.OrganizationID,
		"user_id", res.UserID,
		"status", filter.Status,
		"rows", len(rows))
	return report, nil
}

func totals(rows []*expenseDatamodel.ExportRow) []CurrencyTotal {
	byCurrency := make(map[string]*CurrencyTotal)
	for _, row := range rows {
		t, ok := byCurrency[row.Currency]
		if !ok {
			t = &CurrencyTotal{Currency: row.Currency, Amount: decimal.Zero}
			byCurrency[row.Currency] = t
		}
		t.Count++
		t.Amount = t.Amount.Add(row.Amount)
	}

	out := make([]CurrencyTotal, 0, len(byCurrency))
	for _, t := range byCurrency {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
