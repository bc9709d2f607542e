package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/meeting-matcher/pkg/types"
)

// outputFormat selects how command results are printed.
type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", formatTable:
		return formatTable, nil
	case formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, or yaml)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeStructured prints v as JSON or YAML.
func writeStructured(w io.Writer, f outputFormat, v any) error {
	if f == formatYAML {
		return writeYAML(w, v)
	}
	return writeJSON(w, v)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    60,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// readDocument decodes a JSON or YAML file into v, choosing the decoder
// from the extension. Unknown extensions are read as YAML, which also
// accepts JSON.
func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, v)
	} else {
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// loadAccounts reads the accounts file. The file holds either a list of
// accounts or an object with the list under "clientes".
func loadAccounts(path string) ([]types.Account, error) {
	var wrapped struct {
		Accounts []types.Account `json:"clientes" yaml:"clientes"`
	}
	if err := readDocument(path, &wrapped); err == nil && wrapped.Accounts != nil {
		return wrapped.Accounts, nil
	}

	var accounts []types.Account
	if err := readDocument(path, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func formatDate(m types.Meeting) string {
	if m.Date == nil {
		return ""
	}
	return m.Date.Format("2006-01-02 15:04")
}

func formatMatch(p types.ProcessedMeeting) (account, method, confidence string) {
	if !p.Matched() {
		return "", "", ""
	}
	return *p.AccountID, string(*p.Method), fmt.Sprintf("%.2f", *p.Confidence)
}
