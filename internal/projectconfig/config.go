// Package projectconfig provides the ProjectConfig struct and loader for
// .isatis.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = ".isatis.yaml"

// maxWalkUp bounds how many parent directories Load searches.
const maxWalkUp = 10

// Default values for project configuration. These are the single source of
// truth. New() references them and no other code should duplicate them.
const (
	DefaultMinDiff          = -10.0
	DefaultMaxDiff          = 10.0
	DefaultMaxIterations    = 100
	DefaultPopulationSize   = 50
	DefaultMultiModel       = true
	DefaultWorkers          = 4
	DefaultReferencePattern = `(?i)^(OREAS|SRM|CRM)\s*\d*`

	DefaultDriftMethod = "linear"
	DefaultBasePattern = `^(BASE|STD|STANDARD)`
	DefaultConePattern = `^(CONE|CAL)`
	DefaultRMPattern   = `^(OREAS|SRM|CRM|STANDARD|STD)\d*`

	DefaultCacheDir = ".isatis-cache"
)

// OptimizationConfig holds blank/scale optimizer settings.
type OptimizationConfig struct {
	MinDiff          *float64 `yaml:"min_diff,omitempty"`
	MaxDiff          *float64 `yaml:"max_diff,omitempty"`
	MaxIterations    int      `yaml:"max_iterations,omitempty"`
	PopulationSize   int      `yaml:"population_size,omitempty"`
	Seed             *int64   `yaml:"seed,omitempty"`
	MultiModel       *bool    `yaml:"multi_model,omitempty"`
	Workers          int      `yaml:"workers,omitempty"`
	ReferencePattern string   `yaml:"reference_pattern,omitempty"`
}

// DriftConfig holds drift correction settings.
type DriftConfig struct {
	Method      string `yaml:"method,omitempty"`
	BasePattern string `yaml:"base_pattern,omitempty"`
	ConePattern string `yaml:"cone_pattern,omitempty"`
	RMPattern   string `yaml:"rm_pattern,omitempty"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .isatis.yaml.
type ProjectConfig struct {
	Optimization OptimizationConfig `yaml:"optimization,omitempty"`
	Drift        DriftConfig        `yaml:"drift,omitempty"`
	Cache        CacheConfig        `yaml:"cache,omitempty"`
	Elements     []string           `yaml:"elements,omitempty"`

	// Dir is the directory of the file the config was loaded from. It is
	// empty when only defaults apply.
	Dir string `yaml:"-"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Optimization: OptimizationConfig{
			MinDiff:          float64Ptr(DefaultMinDiff),
			MaxDiff:          float64Ptr(DefaultMaxDiff),
			MaxIterations:    DefaultMaxIterations,
			PopulationSize:   DefaultPopulationSize,
			MultiModel:       boolPtr(DefaultMultiModel),
			Workers:          DefaultWorkers,
			ReferencePattern: DefaultReferencePattern,
		},
		Drift: DriftConfig{
			Method:      DefaultDriftMethod,
			BasePattern: DefaultBasePattern,
			ConePattern: DefaultConePattern,
			RMPattern:   DefaultRMPattern,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
	}
}

// Load finds .isatis.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	p, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	cfg.Dir = filepath.Dir(p)
	return parse(cfg, data, FileName)
}

// LoadFile reads the configuration at an explicit path. Unlike Load, a
// missing file is an error.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg := New()
	if abs, err := filepath.Abs(path); err == nil {
		cfg.Dir = filepath.Dir(abs)
	}
	return parse(cfg, data, path)
}

// Find returns the path of the configuration file Load would use. It
// reports os.ErrNotExist when there is none.
func Find(startDir string) (string, error) {
	p, _, err := findConfigFile(startDir)
	return p, err
}

func parse(cfg *ProjectConfig, data []byte, name string) (*ProjectConfig, error) {
	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	// Merge file values onto defaults.
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .isatis.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) (string, []byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < maxWalkUp; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Optimization
	o, so := &dst.Optimization, src.Optimization
	if so.MinDiff != nil {
		o.MinDiff = so.MinDiff
	}
	if so.MaxDiff != nil {
		o.MaxDiff = so.MaxDiff
	}
	if so.MaxIterations != 0 {
		o.MaxIterations = so.MaxIterations
	}
	if so.PopulationSize != 0 {
		o.PopulationSize = so.PopulationSize
	}
	if so.Seed != nil {
		o.Seed = so.Seed
	}
	if so.MultiModel != nil {
		o.MultiModel = so.MultiModel
	}
	if so.Workers != 0 {
		o.Workers = so.Workers
	}
	if so.ReferencePattern != "" {
		o.ReferencePattern = so.ReferencePattern
	}

	// Drift
	if src.Drift.Method != "" {
		dst.Drift.Method = src.Drift.Method
	}
	if src.Drift.BasePattern != "" {
		dst.Drift.BasePattern = src.Drift.BasePattern
	}
	if src.Drift.ConePattern != "" {
		dst.Drift.ConePattern = src.Drift.ConePattern
	}
	if src.Drift.RMPattern != "" {
		dst.Drift.RMPattern = src.Drift.RMPattern
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}

	if len(src.Elements) > 0 {
		dst.Elements = src.Elements
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func float64Ptr(f float64) *float64 {
	return &f
}
