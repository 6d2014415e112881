// Package matching pairs reference-material readings with certified
// reference records.
package matching

import (
	"regexp"
	"sort"
	"strings"

	"github.com/isatislab/isatis/internal/models"
)

// PreferredMethods are the analysis methods picked first when one
// reference material is certified under several methods.
var PreferredMethods = []string{"4-Acid Digestion", "Aqua Regia Digestion"}

// DefaultReferencePattern recognises reference-material solution labels.
const DefaultReferencePattern = `(?i)^(OREAS|SRM|CRM)\s*\d*`

var symbolPattern = regexp.MustCompile(`^([A-Z][a-z]?)`)

// Qualifies reports whether label and id contain one another, ignoring case.
func Qualifies(label, id string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	k := strings.ToLower(strings.TrimSpace(id))
	if l == "" || k == "" {
		return false
	}
	return strings.Contains(l, k) || strings.Contains(k, l)
}

// Match returns the record for label. When several records qualify the
// most specific (longest) identifier wins, then a preferred analysis
// method, then identifier and method in lexicographic order.
func Match(label string, records []models.ReferenceRecord) (models.ReferenceRecord, bool) {
	var candidates []models.ReferenceRecord
	for _, r := range records {
		if Qualifies(label, r.ID) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return models.ReferenceRecord{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if len(a.ID) != len(b.ID) {
			return len(a.ID) > len(b.ID)
		}
		if pa, pb := methodRank(a.AnalysisMethod), methodRank(b.AnalysisMethod); pa != pb {
			return pa < pb
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.AnalysisMethod < b.AnalysisMethod
	})
	return candidates[0], true
}

func methodRank(method string) int {
	for i, m := range PreferredMethods {
		if strings.EqualFold(m, method) {
			return i
		}
	}
	return len(PreferredMethods)
}

// ElementSymbol extracts the element symbol from an instrument column name,
// e.g. "Fe 238.204" -> "Fe". Returns "" when the column does not start with
// a symbol.
func ElementSymbol(column string) string {
	m := symbolPattern.FindStringSubmatch(strings.TrimSpace(column))
	if m == nil {
		return ""
	}
	return m[1]
}

// ReferenceValue looks up the certified value for a sample column: first by
// the exact column name, then by its element symbol, ignoring case. When
// several keys differ only in case the lexically first one wins.
func ReferenceValue(record models.ReferenceRecord, column string) (float64, bool) {
	if v, ok := record.Values[column]; ok {
		return v, true
	}
	keys := make([]string, 0, len(record.Values))
	for k := range record.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if v, ok := foldLookup(record.Values, keys, column); ok {
		return v, true
	}
	symbol := ElementSymbol(column)
	if symbol == "" {
		return 0, false
	}
	if v, ok := record.Values[symbol]; ok {
		return v, true
	}
	return foldLookup(record.Values, keys, symbol)
}

func foldLookup(values map[string]float64, sortedKeys []string, name string) (float64, bool) {
	for _, k := range sortedKeys {
		if strings.EqualFold(k, name) {
			return values[k], true
		}
	}
	return 0, false
}

// MatchAll pairs every sample with a reference record. Samples with no
// qualifying record are dropped.
func MatchAll(samples []models.Sample, records []models.ReferenceRecord) []models.MatchedSample {
	var out []models.MatchedSample
	for _, s := range samples {
		rec, ok := Match(s.Label, records)
		if !ok {
			continue
		}
		refs := make(map[string]*float64, len(s.Values))
		for col := range s.Values {
			if v, ok := ReferenceValue(rec, col); ok {
				refs[col] = models.Float(v)
			}
		}
		out = append(out, models.MatchedSample{
			Label:           s.Label,
			ReferenceID:     rec.ID,
			AnalysisMethod:  rec.AnalysisMethod,
			SampleValues:    s.Values,
			ReferenceValues: refs,
		})
	}
	return out
}

// FilterLabels keeps the samples whose label matches pattern. A nil pattern
// keeps everything.
func FilterLabels(samples []models.Sample, pattern *regexp.Regexp) []models.Sample {
	if pattern == nil {
		return samples
	}
	out := make([]models.Sample, 0, len(samples))
	for _, s := range samples {
		if pattern.MatchString(s.Label) {
			out = append(out, s)
		}
	}
	return out
}

// CommonElements returns the columns that have both a reading and a
// certified value in at least one matched sample, sorted.
func CommonElements(data []models.MatchedSample) []string {
	seen := make(map[string]bool)
	for _, m := range data {
		for col, v := range m.SampleValues {
			if v == nil {
				continue
			}
			if _, ok := m.ReferenceValues[col]; ok {
				seen[col] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for col := range seen {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}
