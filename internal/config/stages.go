package config

import (
	"fmt"
	"path/filepath"
	"time"

	"abforge/internal/stage"
)

// StageTool configures how one external stage tool is launched.
type StageTool struct {
	// Runner is the argv prefix for the tool's interpreter.
	Runner []string `yaml:"runner"`

	// Script is the tool's entry script, resolved under root if relative.
	Script string `yaml:"script"`

	// Namespace is the module namespace probed by the readiness precheck.
	Namespace string `yaml:"namespace"`

	// Timeout is a duration string ("2h", "45m"); empty means unbounded.
	Timeout string `yaml:"timeout"`
}

// Tool converts the yaml form into the runtime stage.ToolConfig.
func (st StageTool) Tool() (stage.ToolConfig, error) {
	tc := stage.ToolConfig{
		Runner:    st.Runner,
		Script:    st.Script,
		Namespace: st.Namespace,
	}
	if st.Timeout != "" {
		d, err := time.ParseDuration(st.Timeout)
		if err != nil {
			return stage.ToolConfig{}, fmt.Errorf("config: bad stage timeout %q: %w", st.Timeout, err)
		}
		tc.Timeout = d
	}
	return tc, nil
}

// StagesConfig configures the three external stage tools.
type StagesConfig struct {
	Generator StageTool `yaml:"generator"`
	Sequencer StageTool `yaml:"sequencer"`
	Validator StageTool `yaml:"validator"`

	// GeneratorCheckpoint is the weights file passed as the generator's
	// checkpoint override. Resolved under the weights dir if relative.
	GeneratorCheckpoint string `yaml:"generator_checkpoint"`

	// ValidatorConfigRoot is the directory the validator must be launched
	// from so its configuration loader resolves relative references.
	ValidatorConfigRoot string `yaml:"validator_config_root"`
}

func defaultStages() StagesConfig {
	runner := []string{"poetry", "run", "python"}
	return StagesConfig{
		Generator: StageTool{
			Runner:    runner,
			Script:    filepath.Join("scripts", "rfdiffusion_inference.py"),
			Namespace: "rfantibody.rfdiffusion",
		},
		Sequencer: StageTool{
			Runner:    runner,
			Script:    filepath.Join("scripts", "proteinmpnn_interface_design.py"),
			Namespace: "rfantibody.proteinmpnn",
		},
		Validator: StageTool{
			Runner:    runner,
			Script:    filepath.Join("scripts", "rf2_predict.py"),
			Namespace: "rfantibody.rf2",
		},
		GeneratorCheckpoint: "RFdiffusion_Ab.pt",
	}
}

// resolve anchors relative paths: scripts under root, the checkpoint under
// the weights dir, the validator config root under root.
func (s *StagesConfig) resolve(root, weightsDir string) {
	for _, script := range []*string{&s.Generator.Script, &s.Sequencer.Script, &s.Validator.Script} {
		if *script != "" && !filepath.IsAbs(*script) {
			*script = filepath.Join(root, *script)
		}
	}
	if !filepath.IsAbs(s.GeneratorCheckpoint) && filepath.Dir(s.GeneratorCheckpoint) == "." {
		s.GeneratorCheckpoint = filepath.Join(weightsDir, s.GeneratorCheckpoint)
	}
	if s.ValidatorConfigRoot == "" {
		s.ValidatorConfigRoot = filepath.Join(root, "src", "rfantibody", "rf2")
	} else if !filepath.IsAbs(s.ValidatorConfigRoot) {
		s.ValidatorConfigRoot = filepath.Join(root, s.ValidatorConfigRoot)
	}
}

func (s *StagesConfig) validate() error {
	for _, tool := range []struct {
		name string
		st   StageTool
	}{
		{"generator", s.Generator},
		{"sequencer", s.Sequencer},
		{"validator", s.Validator},
	} {
		if len(tool.st.Runner) == 0 {
			return fmt.Errorf("config: stage %s has no runner", tool.name)
		}
		if tool.st.Script == "" {
			return fmt.Errorf("config: stage %s has no script", tool.name)
		}
		if _, err := tool.st.Tool(); err != nil {
			return err
		}
	}
	if s.GeneratorCheckpoint == "" {
		return fmt.Errorf("config: generator checkpoint is required")
	}
	return nil
}

// Namespaces returns the stage module namespaces in pipeline order.
func (s *StagesConfig) Namespaces() []string {
	return []string{s.Generator.Namespace, s.Sequencer.Namespace, s.Validator.Namespace}
}
