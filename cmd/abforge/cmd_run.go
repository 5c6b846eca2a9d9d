package main

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"abforge/internal/pipeline"
	"abforge/internal/procexec"
	"abforge/internal/stage"
)

var (
	runTarget         string
	runFramework      string
	runHotspots       []string
	runLoops          []string
	runDesigns        int
	runSteps          int
	runSeqsPerStruct  int
	runDeterministic  bool
	runGenerationOnly bool
	runOut            string
)

// runCmd executes one pipeline run in the foreground.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the three-stage design pipeline once",
	Long: `Runs structure generation, sequence design and structure validation in
strict order against the given target, stopping at the first failure.

Example:
  abforge run --target rsv_site3.pdb --hotspots T305,T456 --designs 2`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runTarget, "target", "", "target structure file (required)")
	runCmd.Flags().StringVar(&runFramework, "framework", "", "framework structure file (default: configured framework)")
	runCmd.Flags().StringSliceVar(&runHotspots, "hotspots", nil, "hotspot residues on the target, e.g. T305,T456 (required)")
	runCmd.Flags().StringSliceVar(&runLoops, "loops", nil, "design loops as label:range tokens, e.g. L1:8-13,H3:5-13")
	runCmd.Flags().IntVar(&runDesigns, "designs", 0, "number of designs to generate")
	runCmd.Flags().IntVar(&runSteps, "steps", 0, "diffusion step count")
	runCmd.Flags().IntVar(&runSeqsPerStruct, "seqs-per-struct", 0, "sequences designed per structure")
	runCmd.Flags().BoolVar(&runDeterministic, "deterministic", true, "deterministic diffusion sampling")
	runCmd.Flags().BoolVar(&runGenerationOnly, "generation-only", false, "stop after structure generation")
	runCmd.Flags().StringVar(&runOut, "out", "", "run output directory (default: <jobs_dir>/<run-id>)")
	_ = runCmd.MarkFlagRequired("target")
	_ = runCmd.MarkFlagRequired("hotspots")
}

// buildOrchestrator wires the production stage adapters from configuration.
func buildOrchestrator(opts ...pipeline.Option) (*pipeline.Orchestrator, error) {
	exec := procexec.NewHostExecutor(logger)

	genTool, err := cfg.Stages.Generator.Tool()
	if err != nil {
		return nil, err
	}
	seqTool, err := cfg.Stages.Sequencer.Tool()
	if err != nil {
		return nil, err
	}
	valTool, err := cfg.Stages.Validator.Tool()
	if err != nil {
		return nil, err
	}

	generator := stage.NewGenerator(exec, logger, genTool, cfg.Stages.GeneratorCheckpoint, cfg.Root)
	sequencer := stage.NewSequencer(exec, logger, seqTool, cfg.Root)
	validator := stage.NewValidator(exec, logger, valTool, cfg.Stages.ValidatorConfigRoot)

	return pipeline.New(generator, sequencer, validator, logger, opts...), nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	gen := cfg.Generation

	loops := runLoops
	if len(loops) == 0 {
		loops = gen.DefaultLoops
	}
	parsed, err := stage.ParseLoopRanges(loops)
	if err != nil {
		return err
	}

	framework := runFramework
	if framework == "" {
		framework = gen.DefaultFramework
	}

	constraints := &stage.DesignConstraints{
		TargetPDB:       runTarget,
		FrameworkPDB:    framework,
		HotspotResidues: runHotspots,
		DesignLoops:     parsed,
		NumDesigns:      intOr(runDesigns, gen.DefaultNumDesigns),
		DiffusionSteps:  intOr(runSteps, gen.DefaultDiffusionSteps),
		Deterministic:   runDeterministic,
	}
	if err := constraints.Validate(); err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	dir := runOut
	if dir == "" {
		dir = filepath.Join(cfg.JobsDir, runID)
	}

	orch, err := buildOrchestrator(pipeline.WithProgress(func(msg string) {
		cmd.Println(msg)
	}))
	if err != nil {
		return err
	}

	report, err := orch.Run(cmd.Context(), pipeline.RunSpec{
		RunID:          runID,
		Dir:            dir,
		Constraints:    constraints,
		SeqsPerStruct:  intOr(runSeqsPerStruct, gen.SeqsPerStruct),
		GenerationOnly: runGenerationOnly,
	})
	if err != nil {
		return err
	}

	cmd.Println()
	cmd.Printf("Run %s completed in %s\n", report.RunID,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	cmd.Printf("  generated: %3d structures in %s\n", report.Generated.Len(), report.Generated.Dir)
	if !runGenerationOnly {
		cmd.Printf("  designed:  %3d structures in %s\n", report.Designed.Len(), report.Designed.Dir)
		cmd.Printf("  validated: %3d structures in %s\n", report.Validated.Len(), report.Validated.Dir)
	}
	return nil
}

func intOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
