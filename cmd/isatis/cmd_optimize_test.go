package main

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/reporting"
)

func TestStatsCommand_JSONByDefault(t *testing.T) {
	f := newFixture(t, "")

	out, err := runCLI(t, "stats", "--config", f.config, "-s", f.samples, "-r", f.references)
	require.NoError(t, err)

	var res models.OptimizationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.TotalSamples)
	assert.Equal(t, 0, res.PassedBefore)
	assert.Equal(t, 0, res.PassedAfter)
	require.Contains(t, res.Elements, "Cu")
	assert.InDelta(t, 20, res.Elements["Cu"].MeanDiffBefore, 1e-9)
}

func TestStatsCommand_FailOnQC(t *testing.T) {
	f := newFixture(t, "")
	junit := filepath.Join(f.dir, "qc.xml")

	_, err := runCLI(t, "stats", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--fail-on-qc", "--junit", junit)
	require.Error(t, err)

	var qcErr *QCFailureError
	require.True(t, errors.As(err, &qcErr))
	assert.Equal(t, 6, qcErr.Failed)
	assert.Equal(t, 6, qcErr.Total)

	data, err := os.ReadFile(junit)
	require.NoError(t, err)
	var suites reporting.JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &suites))
	assert.Equal(t, 6, suites.Failures)
	assert.Len(t, suites.TestSuites, 2)
}

func TestStatsCommand_BandFromConfig(t *testing.T) {
	f := newFixture(t, "optimization:\n  min_diff: -25\n  max_diff: 25\n")

	out, err := runCLI(t, "stats", "--config", f.config, "-s", f.samples, "-r", f.references, "--fail-on-qc")
	require.NoError(t, err)

	var res models.OptimizationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 6, res.PassedBefore)
}

func TestStatsCommand_FlagsOverrideConfig(t *testing.T) {
	f := newFixture(t, "optimization:\n  min_diff: -25\n  max_diff: 25\n")

	_, err := runCLI(t, "stats", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--max-diff", "15", "--fail-on-qc")

	var qcErr *QCFailureError
	require.True(t, errors.As(err, &qcErr))
}

func TestStatsCommand_InvalidBand(t *testing.T) {
	f := newFixture(t, "")

	_, err := runCLI(t, "stats", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--min-diff", "5", "--max-diff", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greater than max-diff")
}

func TestStatsCommand_TableFormat(t *testing.T) {
	f := newFixture(t, "")

	out, err := runCLI(t, "stats", "--config", f.config, "-s", f.samples, "-r", f.references, "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Element")
	assert.Contains(t, out, "Cu")
	assert.Contains(t, out, "20.00")
	assert.Contains(t, out, "Few checks within tolerance (0%)")
}

func TestStatsCommand_UnsupportedFormat(t *testing.T) {
	f := newFixture(t, "")

	_, err := runCLI(t, "stats", "--config", f.config, "-s", f.samples, "-r", f.references, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "xml"`)
}

func TestStatsCommand_MissingFile(t *testing.T) {
	f := newFixture(t, "")

	_, err := runCLI(t, "stats", "--config", f.config, "-s", filepath.Join(f.dir, "missing.csv"), "-r", f.references)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading samples")
}

func TestStatsCommand_RequiresInputs(t *testing.T) {
	_, err := runCLI(t, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestOptimizeCommand_Seeded(t *testing.T) {
	f := newFixture(t, "")
	junit := filepath.Join(f.dir, "qc.xml")

	out, err := runCLI(t, "optimize", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--seed", "7", "--population", "12", "--max-iterations", "40", "--element", "Cu", "--junit", junit)
	require.NoError(t, err)

	var res models.OptimizationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Elements, 1)
	cu, ok := res.Elements["Cu"]
	require.True(t, ok)
	assert.GreaterOrEqual(t, cu.PassedAfter, cu.PassedBefore)
	require.Len(t, res.OptimizedData, 3)

	for _, row := range res.OptimizedData {
		orig := row.OriginalValues["Cu"]
		got := row.OptimizedValues["Cu"]
		require.NotNil(t, orig)
		require.NotNil(t, got)
		assert.InDelta(t, (*orig-cu.Blank)*cu.Scale, *got, 1e-9)
	}

	_, err = os.Stat(junit)
	require.NoError(t, err)
}

func TestOptimizeCommand_Reproducible(t *testing.T) {
	f := newFixture(t, "")
	args := []string{"optimize", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--seed", "42", "--population", "8", "--max-iterations", "15"}

	first, err := runCLI(t, append(args, "--workers", "1")...)
	require.NoError(t, err)
	second, err := runCLI(t, append(args, "--workers", "4")...)
	require.NoError(t, err)

	assert.JSONEq(t, first, second)
}

func TestOptimizeCommand_CachesSeededRuns(t *testing.T) {
	f := newFixture(t, "")
	cacheDir := filepath.Join(f.dir, "cache")

	_, err := runCLI(t, "optimize", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--seed", "3", "--population", "8", "--max-iterations", "10", "--cache", "--cache-dir", cacheDir)
	require.NoError(t, err)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	out, err := runCLI(t, "cache", "clear", "--config", f.config, "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")

	assert.NoDirExists(t, cacheDir)
}

func TestOptimizeCommand_Markdown(t *testing.T) {
	f := newFixture(t, "")

	out, err := runCLI(t, "optimize", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--seed", "1", "--population", "8", "--max-iterations", "10", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "## Isatis QC Results")
	assert.Contains(t, out, "| Cu |")
	assert.Contains(t, out, "| Fe |")
}

func TestOptimizeCommand_UnknownElement(t *testing.T) {
	f := newFixture(t, "")

	_, err := runCLI(t, "optimize", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--seed", "1", "--element", "Zn")
	require.Error(t, err)
}

func TestPreviewCommand(t *testing.T) {
	f := newFixture(t, "")

	out, err := runCLI(t, "preview", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--element", "Cu", "--scale", "0.8333333333")
	require.NoError(t, err)

	var res models.ManualResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Cu", res.Element)
	assert.Equal(t, 0, res.PassedBefore)
	assert.Equal(t, 3, res.PassedAfter)
	require.Len(t, res.OptimizedData, 3)
}

func TestPreviewCommand_Table(t *testing.T) {
	f := newFixture(t, "")

	out, err := runCLI(t, "preview", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--element", "Fe", "--blank", "0", "--scale", "1", "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "OREAS 2")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "Fe: blank 0.0000, scale 1.0000, 0 -> 0 passing")
}

func TestPreviewCommand_RequiresElement(t *testing.T) {
	f := newFixture(t, "")

	_, err := runCLI(t, "preview", "--config", f.config, "-s", f.samples, "-r", f.references)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element")
}

func TestOptimizeCommand_CacheDirRelativeToConfig(t *testing.T) {
	f := newFixture(t, "cache:\n  enabled: true\n  dir: results-cache\n")
	cacheDir := filepath.Join(f.dir, "results-cache")

	_, err := runCLI(t, "optimize", "--config", f.config, "-s", f.samples, "-r", f.references,
		"--seed", "4", "--population", "8", "--max-iterations", "10")
	require.NoError(t, err)
	assert.DirExists(t, cacheDir)

	out, err := runCLI(t, "cache", "clear", "--config", f.config)
	require.NoError(t, err)
	assert.Contains(t, out, cacheDir)
	assert.NoDirExists(t, cacheDir)
}
