package models

// Sample is one row of an instrument run: the solution label and the
// reading for every element column. A nil value means the cell was empty
// or could not be parsed.
type Sample struct {
	Label  string              `json:"label"`
	Values map[string]*float64 `json:"values"`
}

// Value returns the reading for column, if present.
func (s Sample) Value(column string) (float64, bool) {
	v, ok := s.Values[column]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// ElementReading is a single (label, element, value) cell of a run.
type ElementReading struct {
	Label   string   `json:"label"`
	Element string   `json:"element"`
	Value   *float64 `json:"value,omitempty"`
}

// Readings flattens a sample into its element cells.
func (s Sample) Readings() []ElementReading {
	out := make([]ElementReading, 0, len(s.Values))
	for el, v := range s.Values {
		out = append(out, ElementReading{Label: s.Label, Element: el, Value: v})
	}
	return out
}

// ReferenceRecord holds the certified values of one reference material
// for one analysis method.
type ReferenceRecord struct {
	ID             string             `json:"id" yaml:"id" mapstructure:"id"`
	AnalysisMethod string             `json:"analysis_method" yaml:"analysis_method" mapstructure:"analysis_method"`
	Values         map[string]float64 `json:"values" yaml:"values" mapstructure:"values"`
}

// MatchedSample pairs a reference-material reading with its certified
// record. ReferenceValues is keyed by the sample's own column names.
type MatchedSample struct {
	Label           string              `json:"label"`
	ReferenceID     string              `json:"reference_id"`
	AnalysisMethod  string              `json:"analysis_method,omitempty"`
	SampleValues    map[string]*float64 `json:"sample_values"`
	ReferenceValues map[string]*float64 `json:"reference_values"`
}

// Pair returns the reading and certified value for element. ok is false
// when either is missing or the certified value is zero.
func (m MatchedSample) Pair(element string) (value, reference float64, ok bool) {
	sv, has := m.SampleValues[element]
	if !has || sv == nil {
		return 0, 0, false
	}
	rv, has := m.ReferenceValues[element]
	if !has || rv == nil || *rv == 0 {
		return 0, 0, false
	}
	return *sv, *rv, true
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// CloneValues copies a value map, including the pointed-to readings.
func CloneValues(src map[string]*float64) map[string]*float64 {
	dst := make(map[string]*float64, len(src))
	for k, v := range src {
		if v == nil {
			dst[k] = nil
			continue
		}
		dst[k] = Float(*v)
	}
	return dst
}
