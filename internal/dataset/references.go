package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/isatislab/isatis/internal/models"
)

// Column names recognised in CSV reference exports.
var (
	referenceIDColumns     = []string{"CRM ID", "ID", "Reference ID"}
	referenceMethodColumns = []string{"Analysis Method", "Method"}
)

// LoadReferences reads certified reference records. CSV files use one row
// per (reference, method) with element columns; YAML and JSON files hold
// either a list of records or a document with a "references" list.
func LoadReferences(path string) ([]models.ReferenceRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadReferenceCSV(path)
	case ".yaml", ".yml", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("references: reading %s: %w", path, err)
		}
		recs, err := ParseReferences(data)
		if err != nil {
			return nil, fmt.Errorf("references: %s: %w", path, err)
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("references: unsupported file type %q", filepath.Ext(path))
	}
}

// ParseReferences decodes YAML or JSON reference documents. Certified
// values given as strings are converted to numbers; values that are not
// numeric are dropped.
func ParseReferences(data []byte) ([]models.ReferenceRecord, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	var list []any
	switch v := doc.(type) {
	case []any:
		list = v
	case map[string]any:
		l, ok := v["references"].([]any)
		if !ok {
			return nil, fmt.Errorf(`expected a list or a "references" list`)
		}
		list = l
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected document type %T", doc)
	}

	out := make([]models.ReferenceRecord, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("reference %d: expected a mapping, got %T", i, item)
		}
		if vals, ok := m["values"].(map[string]any); ok {
			m["values"] = numericOnly(vals)
		}

		var rec models.ReferenceRecord
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &rec,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("reference %d: %w", i, err)
		}
		if strings.TrimSpace(rec.ID) == "" {
			return nil, fmt.Errorf("reference %d: missing id", i)
		}
		out = append(out, rec)
	}
	return out, nil
}

func numericOnly(vals map[string]any) map[string]any {
	out := make(map[string]any, len(vals))
	for k, v := range vals {
		switch n := v.(type) {
		case int, int64, float64:
			out[k] = n
		case string:
			if p := ParseReading(n); p != nil {
				out[k] = *p
			} else {
				slog.Debug("skipping non-numeric certified value", "element", k, "value", n)
			}
		}
	}
	return out
}

func loadReferenceCSV(path string) ([]models.ReferenceRecord, error) {
	t, err := loadTable(path)
	if err != nil {
		return nil, err
	}
	idCol := findColumn(t.headers, referenceIDColumns)
	if idCol == "" {
		return nil, fmt.Errorf("references: %s has no id column (one of %s)", path, strings.Join(referenceIDColumns, ", "))
	}
	methodCol := findColumn(t.headers, referenceMethodColumns)

	out := make([]models.ReferenceRecord, 0, len(t.rows))
	for _, row := range t.rows {
		id := strings.TrimSpace(row[idCol])
		if id == "" {
			continue
		}
		rec := models.ReferenceRecord{ID: id, Values: map[string]float64{}}
		if methodCol != "" {
			rec.AnalysisMethod = strings.TrimSpace(row[methodCol])
		}
		for _, h := range t.headers {
			if h == idCol || h == methodCol {
				continue
			}
			if v := ParseReading(row[h]); v != nil {
				rec.Values[h] = *v
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func findColumn(headers, names []string) string {
	for _, n := range names {
		for _, h := range headers {
			if strings.EqualFold(h, n) {
				return h
			}
		}
	}
	return ""
}
