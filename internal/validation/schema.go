// Package validation checks reference record files and project
// configuration against embedded JSON Schemas before the engines see them.
package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/isatislab/isatis/internal/dataset"
	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/schemas"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// referenceSchema is the compiled JSON Schema for reference record files.
var referenceSchema *jsonschema.Schema

// configSchema is the compiled JSON Schema for .isatis.yaml.
var configSchema *jsonschema.Schema

func init() {
	referenceSchema = mustCompileSchema(schemas.ReferenceSchemaJSON, "reference.schema.json")
	configSchema = mustCompileSchema(schemas.ConfigSchemaJSON, "config.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateReferenceFile validates a reference record file. YAML and JSON
// files are checked against the schema; CSV files are checked by loading
// them.
func ValidateReferenceFile(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reading reference file: %w", err)
		}
		if _, err := dataset.LoadReferences(path); err != nil {
			return []string{err.Error()}, nil
		}
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference file: %w", err)
	}
	return ValidateReferenceBytes(data), nil
}

// ValidateReferenceBytes validates raw YAML or JSON bytes against the
// reference schema and reports duplicate (id, analysis method) pairs.
func ValidateReferenceBytes(data []byte) []string {
	if errs := validateYAMLBytes(referenceSchema, data); len(errs) > 0 {
		return errs
	}
	records, err := dataset.ParseReferences(data)
	if err != nil {
		return []string{err.Error()}
	}
	return duplicateRecords(records)
}

func duplicateRecords(records []models.ReferenceRecord) []string {
	type key struct{ id, method string }
	seen := make(map[key]int, len(records))
	var errs []string
	for i, r := range records {
		k := key{strings.ToLower(strings.TrimSpace(r.ID)), strings.ToLower(strings.TrimSpace(r.AnalysisMethod))}
		if first, ok := seen[k]; ok {
			errs = append(errs, defaultPrinter.Sprintf("/%d: duplicate of record %d (%s, %q)", i, first, r.ID, r.AnalysisMethod))
			continue
		}
		seen[k] = i
	}
	return errs
}

// ValidateConfigFile validates an .isatis.yaml file.
func ValidateConfigFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ValidateConfigBytes(data), nil
}

// ValidateConfigBytes validates raw YAML bytes against the config schema,
// then checks the constraints a schema cannot express.
func ValidateConfigBytes(data []byte) []string {
	if errs := validateYAMLBytes(configSchema, data); len(errs) > 0 {
		return errs
	}

	var cfg struct {
		Optimization struct {
			MinDiff          *float64 `yaml:"min_diff"`
			MaxDiff          *float64 `yaml:"max_diff"`
			ReferencePattern string   `yaml:"reference_pattern"`
		} `yaml:"optimization"`
		Drift struct {
			BasePattern string `yaml:"base_pattern"`
			ConePattern string `yaml:"cone_pattern"`
			RMPattern   string `yaml:"rm_pattern"`
		} `yaml:"drift"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}

	var errs []string
	o := cfg.Optimization
	if o.MinDiff != nil && o.MaxDiff != nil && *o.MinDiff > *o.MaxDiff {
		errs = append(errs, defaultPrinter.Sprintf("/optimization: min_diff %v is greater than max_diff %v", *o.MinDiff, *o.MaxDiff))
	}
	for _, p := range []struct{ loc, expr string }{
		{"/optimization/reference_pattern", o.ReferencePattern},
		{"/drift/base_pattern", cfg.Drift.BasePattern},
		{"/drift/cone_pattern", cfg.Drift.ConePattern},
		{"/drift/rm_pattern", cfg.Drift.RMPattern},
	} {
		if p.expr == "" {
			continue
		}
		if _, err := regexp.Compile(p.expr); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid pattern: %v", p.loc, err))
		}
	}
	return errs
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	// Parse YAML into generic any
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}

	// An empty document is an empty mapping.
	if yamlDoc == nil {
		yamlDoc = map[string]any{}
	}

	// Convert to JSON-compatible types (yaml.v3 uses map[string]any which is fine)
	jsonCompatible := convertToJSONCompatible(yamlDoc)

	return validateAgainstSchema(schema, jsonCompatible)
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible converts YAML-decoded values to JSON-compatible
// types. Non-string map keys (e.g. numeric element columns) are stringified.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case map[any]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[fmt.Sprint(k)] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	default:
		return val
	}
}
