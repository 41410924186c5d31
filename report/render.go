package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bytedance/sonic"
)

type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts text, csv or json in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Render writes one table.
func Render(w io.Writer, t Table, f Format) error {
	switch f {
	case FormatCSV:
		return renderCSV(w, t)
	case FormatJSON:
		b, err := sonic.ConfigStd.MarshalIndent(t, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", t.Name, err)
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	default:
		return renderText(w, t)
	}
}

// RenderResult writes every table of a run. JSON output wraps them in the
// run envelope; text and CSV separate tables with a blank line.
func RenderResult(w io.Writer, res *Result, f Format) error {
	if f == FormatJSON {
		b, err := sonic.ConfigStd.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}
	for i, t := range res.Tables {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if f == FormatCSV {
			if _, err := fmt.Fprintf(w, "# %s\n", t.Name); err != nil {
				return err
			}
		}
		if err := Render(w, t, f); err != nil {
			return err
		}
	}
	return nil
}

func renderText(w io.Writer, t Table) error {
	fmt.Fprintf(w, "%s\n%s\n", t.Title, strings.Repeat("=", len(t.Title)))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t\n", strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		fmt.Fprintf(tw, "%s\t\n", strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, n := range t.Notes {
		fmt.Fprintf(w, "note: %s\n", n)
	}
	return nil
}

func renderCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				rec[i] = ""
				continue
			}
			rec[i] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
