package main

import (
	"encoding/json"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

const maxColumnWidth = 60

// renderTable lays rows out under headers. rightAligned lists 1-based
// column numbers holding numbers or durations.
func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, r := range rows {
		tw.AppendRow(toRow(r, len(headers)))
	}

	var cols []table.ColumnConfig
	for n := 1; n <= len(headers); n++ {
		align := text.AlignLeft
		if slices.Contains(rightAligned, n) {
			align = text.AlignRight
		}
		cols = append(cols, table.ColumnConfig{Number: n, Align: align, AlignHeader: text.AlignLeft, WidthMax: maxColumnWidth})
	}
	tw.SetColumnConfigs(cols)
	return tw.Render()
}

// toRow pads or cuts cells to width columns.
func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}

// truncate shortens s to max runes, ending in an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// writeJSON prints v as indented JSON on stdout. HTML characters in titles
// and markdown stay unescaped.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
