package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ABFORGE_ROOT", "/opt/rfantibody")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/opt/rfantibody", cfg.Root)
	assert.Equal(t, "/opt/rfantibody/weights", cfg.WeightsDir)
	assert.Equal(t, "/opt/rfantibody/scripts/examples/example_inputs", cfg.ExamplesDir)
	assert.Equal(t, "/opt/rfantibody/jobs_output", cfg.JobsDir)
	assert.Equal(t, "/opt/rfantibody/scripts/rfdiffusion_inference.py", cfg.Stages.Generator.Script)
	assert.Equal(t, "/opt/rfantibody/weights/RFdiffusion_Ab.pt", cfg.Stages.GeneratorCheckpoint)
	assert.Equal(t, "/opt/rfantibody/src/rfantibody/rf2", cfg.Stages.ValidatorConfigRoot)
	assert.Equal(t, filepath.Join(cfg.ExamplesDir, "hu-4D5-8_Fv.pdb"), cfg.Generation.DefaultFramework)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, 1, cfg.Generation.DefaultNumDesigns)
	assert.Equal(t, 50, cfg.Generation.DefaultDiffusionSteps)
	assert.True(t, cfg.Generation.Deterministic)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
root: /srv/toolkit
jobs_dir: /var/lib/abforge/jobs
server:
  host: 127.0.0.1
  port: 9000
  read_timeout: 15s
generation:
  default_num_designs: 4
  default_diffusion_steps: 25
  deterministic: true
  seqs_per_struct: 2
  default_loops: ["H3:5-13"]
  default_framework: custom_fv.pdb
stages:
  generator:
    runner: ["python3"]
    script: tools/generate.py
    timeout: 2h
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/toolkit", cfg.Root)
	assert.Equal(t, "/var/lib/abforge/jobs", cfg.JobsDir)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 4, cfg.Generation.DefaultNumDesigns)
	assert.Equal(t, []string{"H3:5-13"}, cfg.Generation.DefaultLoops)
	assert.Equal(t, "/srv/toolkit/tools/generate.py", cfg.Stages.Generator.Script)

	tool, err := cfg.Stages.Generator.Tool()
	require.NoError(t, err)
	assert.Equal(t, []string{"python3"}, tool.Runner)
	assert.Equal(t, "2h0m0s", tool.Timeout.String())
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_BadTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
stages:
  generator:
    runner: ["python3"]
    script: x.py
    timeout: banana
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestValidate_BadPort(t *testing.T) {
	cfg := Default("/x")
	cfg.resolve()
	cfg.Server.Port = -1
	require.Error(t, cfg.Validate())
}

func TestStagesConfig_Namespaces(t *testing.T) {
	cfg := Default("/x")
	assert.Equal(t, []string{
		"rfantibody.rfdiffusion",
		"rfantibody.proteinmpnn",
		"rfantibody.rf2",
	}, cfg.Stages.Namespaces())
}
