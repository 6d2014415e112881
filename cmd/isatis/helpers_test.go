package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Readings are 20% above the certified values for every element.
const qcSamplesCSV = `Solution Label,Cu,Fe
BLK,0.1,0.2
OREAS 1,120,240
S1,50,60
OREAS 2,240,480
OREAS 3,360,720
`

const qcReferencesYAML = `- id: OREAS 1
  values: {Cu: 100, Fe: 200}
- id: OREAS 2
  values: {Cu: 200, Fe: 400}
- id: OREAS 3
  values: {Cu: 300, Fe: 600}
`

// Fe drifts 10% between the two standards.
const driftSamplesCSV = `Solution Label,Fe
STD 1,100
S1,50
S2,52
STD 2,110
S3,55
`

type fixture struct {
	dir        string
	samples    string
	references string
	drift      string
	config     string
}

func newFixture(t *testing.T, config string) fixture {
	t.Helper()
	dir := t.TempDir()
	return fixture{
		dir:        dir,
		samples:    writeTestFile(t, dir, "run.csv", qcSamplesCSV),
		references: writeTestFile(t, dir, "references.yaml", qcReferencesYAML),
		drift:      writeTestFile(t, dir, "drift.csv", driftSamplesCSV),
		config:     writeTestFile(t, dir, ".isatis.yaml", config),
	}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// runCLI executes the root command and returns what it wrote to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
