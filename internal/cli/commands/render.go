package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/restorm/internal/cli/ui"
	"github.com/conduit-lang/restorm/internal/orm/resource"
)

// Output formats accepted by --output
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func checkOutput(output string) error {
	switch output {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", output)
}

// columns orders the fields of records: primary key, declared attributes,
// declared extras, then any undeclared field in first-seen order
func columns(t *resource.Type, records []*resource.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			cols = append(cols, name)
		}
	}

	present := make(map[string]bool)
	var undeclared []string
	for _, r := range records {
		for _, store := range [][]string{r.Attributes().Keys(), r.ExtraValues().Keys()} {
			for _, key := range store {
				if !present[key] {
					present[key] = true
					undeclared = append(undeclared, key)
				}
			}
		}
	}

	add(t.PrimaryKey())
	for _, cfg := range t.Schema().Attrs() {
		add(cfg.Name)
	}
	for _, cfg := range t.Schema().Extras() {
		if present[cfg.Name] {
			add(cfg.Name)
		}
	}
	for _, key := range undeclared {
		add(key)
	}
	return cols
}

// cell renders one value for a table
func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}

func renderRecords(w io.Writer, t *resource.Type, records []*resource.Record, output string, noColor bool) error {
	switch output {
	case outputJSON, outputYAML:
		values := make([]map[string]any, 0, len(records))
		for _, r := range records {
			values = append(values, r.Values())
		}
		return encode(w, values, output)
	}

	cols := columns(t, records)
	table := ui.NewTable(w, cols, &ui.TableOptions{NoColor: noColor})
	for _, r := range records {
		values := r.Values()
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = cell(values[col])
		}
		table.AddRow(cells...)
	}
	table.Render()
	return nil
}

func renderRecord(w io.Writer, r *resource.Record, output string, noColor bool) error {
	values := r.Values()
	if output != outputTable {
		return encode(w, values, output)
	}

	kv := ui.NewKeyValueTable(w, noColor)
	for _, col := range columns(r.Type(), []*resource.Record{r}) {
		if v, ok := values[col]; ok {
			kv.AddRow(col, cell(v))
		}
	}
	kv.Render()
	return nil
}

func encode(w io.Writer, v any, output string) error {
	if output == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
