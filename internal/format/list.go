// Package format renders code examples and learned-pattern listings.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sessionlearn/internal/model"
)

// ListOptions controls WriteRecords.
type ListOptions struct {
	Format        string // table, plain, json or jsonl
	IncludeHeader bool
	ProblemWidth  int // maximum characters of the problem column; 0 means unlimited
}

// WriteRecords writes pattern records to w in the requested format.
func WriteRecords(w io.Writer, items []model.Record, opts ListOptions) error {
	switch strings.ToLower(opts.Format) {
	case "", "table":
		return writeRecordsTable(w, items, opts)
	case "plain":
		return writeRecordsPlain(w, items, opts)
	case "json":
		return writeRecordsJSON(w, items)
	case "jsonl":
		return writeRecordsJSONL(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

func writeRecordsPlain(w io.Writer, items []model.Record, opts ListOptions) error {
	if opts.IncludeHeader {
		if _, err := fmt.Fprintln(w, "last_used\tid\tcategory\tusage_count\tkeywords\tproblem"); err != nil {
			return err
		}
	}

	for _, item := range items {
		line := fmt.Sprintf(
			"%s\t%s\t%s\t%d\t%s\t%s",
			formatTime(item.LastUsed),
			item.ID,
			item.Category,
			item.UsageCount,
			strings.Join(item.Keywords, ", "),
			clip(escapeNewlines(item.Problem), opts.ProblemWidth),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeRecordsJSON(w io.Writer, items []model.Record) error {
	if items == nil {
		items = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func writeRecordsJSONL(w io.Writer, items []model.Record) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func writeRecordsTable(w io.Writer, items []model.Record, opts ListOptions) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = true
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	problemCol := table.ColumnConfig{Number: 6, Align: text.AlignLeft, AlignHeader: text.AlignCenter}
	if opts.ProblemWidth > 0 {
		problemCol.WidthMax = opts.ProblemWidth
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		problemCol,
	})

	if opts.IncludeHeader {
		tw.AppendHeader(table.Row{"Last Used", "ID", "Category", "Uses", "Keywords", "Problem"})
	}

	for _, item := range items {
		tw.AppendRow(table.Row{
			formatTime(item.LastUsed),
			item.ID,
			item.Category,
			item.UsageCount,
			strings.Join(item.Keywords, ", "),
			escapeNewlines(item.Problem),
		})
	}

	if len(items) == 0 {
		tw.AppendRow(table.Row{"-", "(no patterns)", "-", 0, "-", "-"})
	}

	_ = tw.Render()
	return nil
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format(time.RFC3339)
}

func escapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}

func clip(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen == 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}
