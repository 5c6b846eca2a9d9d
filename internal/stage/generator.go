package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"abforge/internal/artifact"
	"abforge/internal/procexec"
)

// OutputPrefix is the file-name stem of every structure the generator emits.
const OutputPrefix = "ab_des"

// Generator runs the structure-diffusion stage: target + framework +
// design constraints in, candidate backbone structures out.
type Generator struct {
	exec       procexec.Executor
	log        *zap.Logger
	tool       ToolConfig
	checkpoint string // model weights override path
	workDir    string // project root the tool is launched from
}

// NewGenerator builds the structure-generation adapter.
func NewGenerator(exec procexec.Executor, log *zap.Logger, tool ToolConfig, checkpoint, workDir string) *Generator {
	return &Generator{exec: exec, log: log, tool: tool, checkpoint: checkpoint, workDir: workDir}
}

// Name implements Runner.
func (g *Generator) Name() string { return "rfdiffusion" }

// Run implements Runner. Input existence is checked before launch so a
// missing target or framework never leaves partial artifacts in OutputDir.
func (g *Generator) Run(ctx context.Context, req Request) (Report, error) {
	c := req.Constraints
	if c == nil {
		return Report{}, fmt.Errorf("generator: design constraints are required")
	}
	if err := c.Validate(); err != nil {
		return Report{}, fmt.Errorf("generator: %w", err)
	}
	if err := requireFile("target structure", c.TargetPDB); err != nil {
		return Report{}, err
	}
	if err := requireFile("framework structure", c.FrameworkPDB); err != nil {
		return Report{}, err
	}
	if err := requireFile("generator checkpoint", g.checkpoint); err != nil {
		return Report{}, err
	}
	if err := artifact.EnsureDir(req.OutputDir); err != nil {
		return Report{}, err
	}

	prefix := filepath.Join(req.OutputDir, OutputPrefix)
	binary, args, err := g.tool.argv(
		"--config-name", "antibody",
		"antibody.target_pdb="+c.TargetPDB,
		"antibody.framework_pdb="+c.FrameworkPDB,
		"inference.ckpt_override_path="+g.checkpoint,
		"ppi.hotspot_res="+c.HotspotsArg(),
		"antibody.design_loops="+c.LoopsArg(),
		"inference.num_designs="+strconv.Itoa(c.NumDesigns),
		"inference.final_step="+strconv.Itoa(c.DiffusionSteps),
		"diffuser.T="+strconv.Itoa(c.DiffusionSteps),
		"inference.deterministic="+strconv.FormatBool(c.Deterministic),
		"inference.output_prefix="+prefix,
	)
	if err != nil {
		return Report{}, fmt.Errorf("generator: %w", err)
	}

	g.log.Info("running structure generation",
		zap.String("target", c.TargetPDB),
		zap.Int("num_designs", c.NumDesigns),
		zap.Int("diffusion_steps", c.DiffusionSteps))

	res, err := g.exec.Run(ctx, procexec.Command{
		Binary:  binary,
		Args:    args,
		Dir:     g.workDir,
		Timeout: g.tool.Timeout,
	})
	if err != nil {
		return Report{}, fmt.Errorf("generator: %w", err)
	}
	if !res.Success() {
		return Report{}, &ExecutionError{
			Stage:      g.Name(),
			ExitCode:   res.ExitCode,
			StderrTail: res.StderrTail(500),
		}
	}

	out, err := verifyOutput(g.Name(), req.OutputDir)
	if err != nil {
		return Report{}, err
	}
	g.log.Info("structure generation finished",
		zap.Int("structures", out.Len()),
		zap.Duration("duration", res.Duration))
	return Report{Output: out, Duration: res.Duration}, nil
}
