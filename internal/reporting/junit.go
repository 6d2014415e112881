package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/isatislab/isatis/internal/crmcheck"
	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/statistics"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite holds the checks of one element.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase is one sample checked for one element.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure is a reading outside the tolerance band.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a cell with no usable reading or certified value.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Failed reports whether any test case failed.
func (s *JUnitTestSuites) Failed() bool {
	return s.Failures > 0
}

// ConvertOptimization turns the corrected dataset of an optimization run
// into one suite per element and one test case per sample. Cells with no
// after-correction diff are reported as skipped.
func ConvertOptimization(res *models.OptimizationResult, band statistics.Band, now time.Time) *JUnitTestSuites {
	out := &JUnitTestSuites{}
	if res == nil {
		return out
	}

	elements := make([]string, 0, len(res.Elements))
	for el := range res.Elements {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	for _, el := range elements {
		params := res.Elements[el]
		suite := JUnitTestSuite{
			Name:      el,
			Timestamp: now.Format(time.RFC3339),
			Properties: []JUnitProperty{
				{Name: "blank", Value: fmt.Sprintf("%.6g", params.Blank)},
				{Name: "scale", Value: fmt.Sprintf("%.6g", params.Scale)},
				{Name: "model", Value: string(params.SelectedModel)},
				{Name: "band", Value: fmt.Sprintf("[%g, %g]", band.Min, band.Max)},
			},
		}
		for _, row := range res.OptimizedData {
			tc := JUnitTestCase{Name: row.Label, Classname: el}
			diff, ok := row.DiffPercentAfter[el]
			switch {
			case !ok:
				tc.Skipped = &JUnitSkipped{Message: "no reading or certified value"}
				suite.Skipped++
			case !row.PassAfter[el]:
				tc.Failure = &JUnitFailure{
					Message: fmt.Sprintf("%s %s: diff %.2f%% outside [%g, %g]", row.Label, el, diff, band.Min, band.Max),
					Type:    "QCFailure",
					Body:    cellDetail(row, el),
				}
				suite.Failures++
			}
			suite.Tests++
			suite.TestCases = append(suite.TestCases, tc)
		}
		out.add(suite)
	}
	return out
}

// ConvertCRM turns a CRM comparison into one suite per reference material
// row with one test case per element column.
func ConvertCRM(rows []crmcheck.Row, band statistics.Band, now time.Time) *JUnitTestSuites {
	out := &JUnitTestSuites{}
	for _, r := range rows {
		suite := JUnitTestSuite{
			Name:      r.Label,
			Timestamp: now.Format(time.RFC3339),
			Properties: []JUnitProperty{
				{Name: "reference", Value: r.ReferenceID},
				{Name: "method", Value: r.AnalysisMethod},
			},
		}
		for _, d := range r.Differences {
			tc := JUnitTestCase{Name: d.Column, Classname: r.ReferenceID}
			switch {
			case d.DiffPercent == nil:
				tc.Skipped = &JUnitSkipped{Message: "no certified value"}
				suite.Skipped++
			case !d.InRange:
				tc.Failure = &JUnitFailure{
					Message: fmt.Sprintf("%s %s: diff %.2f%% outside [%g, %g]", r.Label, d.Column, *d.DiffPercent, band.Min, band.Max),
					Type:    "CRMFailure",
				}
				suite.Failures++
			}
			suite.Tests++
			suite.TestCases = append(suite.TestCases, tc)
		}
		out.add(suite)
	}
	return out
}

func (s *JUnitTestSuites) add(suite JUnitTestSuite) {
	s.Tests += suite.Tests
	s.Failures += suite.Failures
	s.TestSuites = append(s.TestSuites, suite)
}

func cellDetail(row models.OptimizedSample, el string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "reference: %s\n", row.ReferenceID)
	if v := row.OriginalValues[el]; v != nil {
		fmt.Fprintf(&b, "original: %g\n", *v)
	}
	if v := row.OptimizedValues[el]; v != nil {
		fmt.Fprintf(&b, "corrected: %g\n", *v)
	}
	if v := row.ReferenceValues[el]; v != nil {
		fmt.Fprintf(&b, "certified: %g\n", *v)
	}
	if d, ok := row.DiffPercentBefore[el]; ok {
		fmt.Fprintf(&b, "diff before: %.2f%%\n", d)
	}
	return b.String()
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(suites *JUnitTestSuites, path string) error {
	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
