// Package format renders API responses as text tables, JSON, or CSV, and
// prints styled status lines.
package format

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/grandcamel/splunk-as/internal/display"
)

// Output formats selectable with --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputCSV  = "csv"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#88FF88"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA44"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF8888"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// Success prints a green confirmation line.
func Success(format string, a ...any) {
	fmt.Println(successStyle.Render("✓ " + fmt.Sprintf(format, a...)))
}

// Warning prints an orange warning line.
func Warning(format string, a ...any) {
	fmt.Println(warningStyle.Render("! " + fmt.Sprintf(format, a...)))
}

// Error prints a red error line to stderr.
func Error(format string, a ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+fmt.Sprintf(format, a...)))
}

// JSON renders v as indented JSON.
func JSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// PrintJSON writes indented JSON to stdout.
func PrintJSON(v any) {
	fmt.Println(JSON(v))
}

// Table renders rows as a bordered table. columns fixes the column order;
// when empty the union of row keys is used, sorted, with _time and any
// leading-underscore fields last.
func Table(rows []map[string]any, columns []string) string {
	if len(rows) == 0 {
		return ""
	}
	if len(columns) == 0 {
		columns = inferColumns(rows)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == 0 {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(columns...)

	width, _ := display.GetTerminalSize()
	if width > 20 {
		t = t.Width(min(width, 200))
	}

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = cellString(row[col])
		}
		t = t.Row(cells...)
	}
	return t.Render()
}

// PrintTable writes a table to stdout, or a note when there are no rows.
func PrintTable(rows []map[string]any, columns []string) {
	if len(rows) == 0 {
		fmt.Println("(no results)")
		return
	}
	fmt.Println(Table(rows, columns))
}

func inferColumns(rows []map[string]any) []string {
	seen := map[string]bool{}
	var regular, internal []string
	for _, row := range rows {
		for key := range row {
			if seen[key] {
				continue
			}
			seen[key] = true
			if strings.HasPrefix(key, "_") {
				internal = append(internal, key)
			} else {
				regular = append(regular, key)
			}
		}
	}
	sort.Strings(regular)
	sort.Strings(internal)
	return append(regular, internal...)
}

func cellString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(data)
	}
}

// WriteCSV writes rows to w with a header line. Column inference matches
// Table.
func WriteCSV(w io.Writer, rows []map[string]any, columns []string) error {
	if len(columns) == 0 {
		columns = inferColumns(rows)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = cellString(row[col])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("error flushing CSV: %w", err)
	}
	return nil
}

// ExportCSV writes rows to a file, creating or truncating it.
func ExportCSV(path string, rows []map[string]any, columns []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer f.Close()
	return WriteCSV(f, rows, columns)
}
