// Package export writes report tables and run summaries to disk.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// FormatFloat renders v with the fewest digits that round-trip.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Record returns the cells of r in header order. Null names are empty.
func Record(t analysis.Table, r analysis.Row) []string {
	record := make([]string, 0, len(t.KeyColumns)+len(t.Columns))
	for _, k := range t.KeyColumns {
		v, _ := r.Key.Column(k)
		record = append(record, v)
	}
	for _, c := range t.Columns {
		record = append(record, FormatFloat(r.Values[c]))
	}
	return record
}

func WriteCSV(w io.Writer, t analysis.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := cw.Write(Record(t, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes t as an array of objects, one per row. Null names are
// encoded as JSON null.
func WriteJSON(w io.Writer, t analysis.Table) error {
	objects := make([]map[string]interface{}, 0, len(t.Rows))
	for _, r := range t.Rows {
		obj := make(map[string]interface{}, len(t.KeyColumns)+len(t.Columns))
		for _, k := range t.KeyColumns {
			if v, valid := r.Key.Column(k); valid {
				obj[k] = v
			} else {
				obj[k] = nil
			}
		}
		for _, c := range t.Columns {
			obj[c] = r.Values[c]
		}
		objects = append(objects, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(objects)
}

// WriteFiles writes every table to dir/<name>.<format> and returns the paths
// written.
func WriteFiles(dir, format string, tables []analysis.Table) ([]string, error) {
	var write func(io.Writer, analysis.Table) error
	switch format {
	case FormatCSV:
		write = WriteCSV
	case FormatJSON:
		write = WriteJSON
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	var paths []string
	for _, t := range tables {
		path := filepath.Join(dir, t.Name+"."+format)
		if err := writeFile(path, t, write); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, t analysis.Table, write func(io.Writer, analysis.Table) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
