// Package drift detects check-standards in an instrument run, splits the
// run into segments between them and corrects time-dependent drift.
package drift

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/isatislab/isatis/internal/models"
)

// Default label patterns. They are matched case-insensitively.
const (
	DefaultBasePattern      = `^(BASE|STD|STANDARD)`
	DefaultConePattern      = `^(CONE|CAL)`
	DefaultReferencePattern = `^(OREAS|SRM|CRM|STANDARD|STD)\d*`
)

var (
	typeWord  = regexp.MustCompile(`(chek|check|cone)`)
	digitsRun = regexp.MustCompile(`\d+`)
)

// Patterns are the compiled label patterns that mark standard rows.
type Patterns struct {
	Base      *regexp.Regexp
	Cone      *regexp.Regexp
	Reference *regexp.Regexp
}

// DefaultPatterns returns the compiled default patterns.
func DefaultPatterns() Patterns {
	p, _ := CompilePatterns("", "", "")
	return p
}

// CompilePatterns compiles the three label patterns. An empty pattern
// selects its default.
func CompilePatterns(base, cone, reference string) (Patterns, error) {
	var p Patterns
	var err error
	if p.Base, err = compile("base", base, DefaultBasePattern); err != nil {
		return Patterns{}, err
	}
	if p.Cone, err = compile("cone", cone, DefaultConePattern); err != nil {
		return Patterns{}, err
	}
	if p.Reference, err = compile("reference", reference, DefaultReferencePattern); err != nil {
		return Patterns{}, err
	}
	return p, nil
}

func compile(name, expr, def string) (*regexp.Regexp, error) {
	if expr == "" {
		expr = def
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s pattern %q: %w", name, expr, err)
	}
	return re, nil
}

func (p Patterns) orDefault() Patterns {
	d := DefaultPatterns()
	if p.Base == nil {
		p.Base = d.Base
	}
	if p.Cone == nil {
		p.Cone = d.Cone
	}
	if p.Reference == nil {
		p.Reference = d.Reference
	}
	return p
}

// Classify reports whether label is a standard and, if so, its kind and
// number. Base is tried first, then cone, then reference material. A
// "check" suffix on a base or reference label makes it a check standard.
func (p Patterns) Classify(label string) (models.StandardKind, int, bool) {
	p = p.orDefault()
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", 0, false
	}

	var kind models.StandardKind
	switch {
	case p.Base.MatchString(trimmed):
		kind = models.StandardBase
	case p.Cone.MatchString(trimmed):
		kind = models.StandardCone
	case p.Reference.MatchString(trimmed):
		kind = models.StandardReference
	default:
		return "", 0, false
	}

	lower := strings.ToLower(trimmed)
	before, after := lower, ""
	if loc := typeWord.FindStringSubmatchIndex(lower); loc != nil {
		word := lower[loc[2]:loc[3]]
		before, after = lower[:loc[0]], lower[loc[1]:]
		if word == "cone" {
			kind = models.StandardCone
		} else if kind != models.StandardCone {
			kind = models.StandardCheck
		}
	}

	// The number closest before the type word wins; "CONE 3" style labels
	// fall back to the first number after it.
	number := 0
	if nums := digitsRun.FindAllString(before, -1); len(nums) > 0 {
		number, _ = strconv.Atoi(nums[len(nums)-1])
	} else if num := digitsRun.FindString(after); num != "" {
		number, _ = strconv.Atoi(num)
	}
	return kind, number, true
}

// DetectMarkers tags every standard row, in run order.
func DetectMarkers(samples []models.Sample, p Patterns) []models.StandardMarker {
	var markers []models.StandardMarker
	for i, s := range samples {
		kind, num, ok := p.Classify(s.Label)
		if !ok {
			continue
		}
		markers = append(markers, models.StandardMarker{Index: i, Label: s.Label, Kind: kind, Number: num})
	}
	return markers
}

// DetectSegments splits the run into segments between consecutive
// standards. With fewer than two standards the whole run is one segment.
// The segments always cover [0, len(samples)-1].
func DetectSegments(samples []models.Sample, p Patterns) []models.DriftSegment {
	return segmentsFromMarkers(samples, DetectMarkers(samples, p))
}

func segmentsFromMarkers(samples []models.Sample, markers []models.StandardMarker) []models.DriftSegment {
	n := len(samples)
	if n == 0 {
		return nil
	}
	if len(markers) < 2 {
		return []models.DriftSegment{{
			SegmentIndex:  0,
			StartIndex:    0,
			EndIndex:      n - 1,
			StandardStart: 0,
			StandardEnd:   n - 1,
			SampleCount:   n,
		}}
	}

	segments := make([]models.DriftSegment, 0, len(markers)-1)
	for i := 0; i+1 < len(markers); i++ {
		start, end := markers[i], markers[i+1]
		segments = append(segments, models.DriftSegment{
			SegmentIndex:  i,
			StartIndex:    start.Index,
			EndIndex:      end.Index,
			StandardStart: start.Index,
			StandardEnd:   end.Index,
			StartLabel:    samples[start.Index].Label,
			EndLabel:      samples[end.Index].Label,
		})
	}
	segments[0].StartIndex = 0
	segments[len(segments)-1].EndIndex = n - 1
	for i := range segments {
		segments[i].SampleCount = segments[i].EndIndex - segments[i].StartIndex + 1
	}
	return segments
}

// SegmentFor returns the segment that owns row. A row shared by two
// segments belongs to the earlier one.
func SegmentFor(segments []models.DriftSegment, row int) (models.DriftSegment, bool) {
	for _, s := range segments {
		if s.Contains(row) {
			return s, true
		}
	}
	return models.DriftSegment{}, false
}
