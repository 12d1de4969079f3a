package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDescriptor(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inputs"), 0o755))

	path := writeDescriptor(t, dir, "base.yaml", `
name: base-case
inputs_dir: inputs
outputs_dir: outputs
modules: [well-build, balance, demand-response]
iterate: true
flat_pricing: true
tolerance: 0.0005
max_iterations: 30
aliases:
  pipelines.csv: pipelines_expanded.csv
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.Equal(t, "base-case", s.Name)
	require.True(t, s.Iterate)
	require.True(t, s.FlatPricing)
	require.Equal(t, 0.0005, s.Tolerance)
	require.Equal(t, 30, s.MaxIterations)

	// Relative dirs resolve against the descriptor's directory. Inputs must
	// exist to be rebased; outputs are rebased unconditionally.
	require.Equal(t, filepath.Join(dir, "inputs"), s.InputsDir)
	require.Equal(t, filepath.Join(dir, "outputs"), s.OutputsDir)

	require.True(t, s.HasModule(ModuleWellBuild))
	require.False(t, s.HasModule(ModuleNetworkBuild))

	// Alias table redirects canonical names; everything else passes through.
	require.Equal(t, filepath.Join(dir, "inputs", "pipelines_expanded.csv"), s.ResolveInput("pipelines.csv"))
	require.Equal(t, filepath.Join(dir, "inputs", "zones.csv"), s.ResolveInput("zones.csv"))
}

func TestLoadScenarioRejectsUnknownModule(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, "bad.yaml", `
name: bad
inputs_dir: in
outputs_dir: out
modules: [hydro-build]
`)
	_, err := LoadScenario(path)
	require.ErrorContains(t, err, `unknown module "hydro-build"`)
}

func TestValidateIterateNeedsDemandResponse(t *testing.T) {
	s := &Scenario{
		Name:       "loop",
		InputsDir:  "in",
		OutputsDir: "out",
		Modules:    []string{ModuleWellBuild},
		Iterate:    true,
	}
	require.ErrorContains(t, s.Validate(), "demand-response")

	s.Modules = append(s.Modules, ModuleDemandResponse)
	require.NoError(t, s.Validate())
}

func TestValidateRejectsUnknownDemandModule(t *testing.T) {
	s := &Scenario{
		Name:         "curve",
		InputsDir:    "in",
		OutputsDir:   "out",
		DemandModule: "linear",
	}
	require.ErrorContains(t, s.Validate(), "unsupported demand module")
}

func TestValidateRejectsNegativeSettings(t *testing.T) {
	s := &Scenario{Name: "neg", InputsDir: "in", OutputsDir: "out", Tolerance: -1}
	require.Error(t, s.Validate())
}

func TestLoadBatch(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, "batch.yaml", `
scenarios:
  - name: first
    inputs_dir: in
    outputs_dir: out/first
  - name: second
    inputs_dir: in
    outputs_dir: out/second
    modules: [demand-response]
    iterate: true
`)
	b, err := LoadBatch(path)
	require.NoError(t, err)
	require.Len(t, b.Scenarios, 2)
	require.Equal(t, "first", b.Scenarios[0].Name)
	require.True(t, b.Scenarios[1].Iterate)
	require.Equal(t, filepath.Join(dir, "out", "second"), b.Scenarios[1].OutputsDir)
}

func TestLoadBatchRequiresScenarios(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, "empty.yaml", "scenarios: []\n")
	_, err := LoadBatch(path)
	require.ErrorContains(t, err, "no scenarios")
}
