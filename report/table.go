// Package report turns analysis results into named result tables and
// renders them as aligned text, CSV or JSON.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Table is one report result. Cells hold string, int, int64, float64,
// decimal.Decimal or nil (undefined).
type Table struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Notes   []string `json:"notes,omitempty"`
}

func newTable(name, title string, columns ...string) Table {
	return Table{Name: name, Title: title, Columns: columns, Rows: [][]any{}}
}

func (t *Table) add(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) note(format string, args ...any) {
	t.Notes = append(t.Notes, fmt.Sprintf(format, args...))
}

// optFloat turns an undefined statistic into a nil cell.
func optFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// formatCell renders a cell for text and CSV output. Undefined cells
// become "n/a".
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "n/a"
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case decimal.Decimal:
		return x.StringFixed(2)
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}
