package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName  = "Expenses"
	timeLayout = "2006-01-02 15:04"
)

var headers = []interface{}{
	"Date", "Submitter", "Email", "Title", "Category", "Vendor",
	"Currency", "Amount", "Status", "Decided At",
}

var columnWidths = map[string]float64{
	"A": 12, "B": 22, "C": 28, "D": 36, "E": 18,
	"F": 22, "G": 10, "H": 14, "I": 12, "J": 18,
}

func border() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
}

type styles struct {
	header int
	data   int
	amount int
	total  int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border(),
	}); err != nil {
		return s, err
	}
	if s.data, err = f.NewStyle(&excelize.Style{Border: border()}); err != nil {
		return s, err
	}
	if s.amount, err = f.NewStyle(&excelize.Style{Border: border(), NumFmt: 4}); err != nil {
		return s, err
	}
	s.total, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Border: border(),
		NumFmt: 4,
	})
	return s, err
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Workbook renders the report: a header row, one row per expense and a
// total row per currency. The caller closes the file.
// writeRow fills columns A..J of row and applies style to them.
func writeRow(f *excelize.File, row int, values []interface{}, style int) error {
	if err := f.SetSheetRow(SheetName, cell("A", row), &values); err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, cell("A", row), cell("J", row), style)
}

func Workbook(report *Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, err
	}

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeRow(f, 1, headers, st.header); err != nil {
		f.Close()
		return nil, err
	}

	row := 2
	for _, r := range report.Rows {
		decided := r.ApprovedAt
		if r.ReimbursedAt != nil {
			decided = r.ReimbursedAt
		}
		decidedAt := ""
		if decided != nil {
			decidedAt = decided.UTC().Format(timeLayout)
		}

		values := []interface{}{
			r.ExpenseDate.Format(dateLayout),
			r.SubmitterName,
			r.Email,
			r.Title,
			optional(r.CategoryName),
			optional(r.VendorName),
			r.Currency,
			r.Amount.InexactFloat64(),
			r.Status,
			decidedAt,
		}
		if err := writeRow(f, row, values, st.data); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, cell("H", row), cell("H", row), st.amount); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	for _, t := range report.Totals {
		values := []interface{}{
			"Total", fmt.Sprintf("%d expenses", t.Count), "", "", "", "",
			t.Currency, t.Amount.InexactFloat64(), "", "",
		}
		if err := writeRow(f, row, values, st.total); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	return f, nil
}
