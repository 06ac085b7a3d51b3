package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// render writes v in the chosen format. Table output flattens v through
// JSON, so it works for any record type.
func render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderTable(w, v)
	}
}

// toGeneric round-trips v through JSON so YAML keys follow the JSON tags.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func renderTable(w io.Writer, v any) error {
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	switch val := generic.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(val))
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				rows = append(rows, m)
			}
		}
		cols := columns(rows)
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
		for _, row := range rows {
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = cell(row[c])
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\n", k, cell(val[k]))
		}
	default:
		fmt.Fprintln(tw, cell(val))
	}
	return tw.Flush()
}

// columns puts id first, then every other scalar key in order.
func columns(rows []map[string]any) []string {
	seen := map[string]bool{}
	var cols []string
	for _, row := range rows {
		for k, v := range row {
			if seen[k] {
				continue
			}
			switch v.(type) {
			case map[string]any, []any:
				continue
			}
			seen[k] = true
			cols = append(cols, k)
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i] == "id" || cols[j] == "id" {
			return cols[i] == "id"
		}
		return cols[i] < cols[j]
	})
	return cols
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]any, []any:
		data, _ := json.Marshal(val)
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
