package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"abforge/internal/precheck"
	"abforge/internal/procexec"
)

// checkCmd runs the readiness precheck: weights, example inputs, and the
// import health of each stage's module namespace.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify model weights, example inputs and stage importability",
	Long: `Runs the advisory readiness diagnostics without touching any state:
reports OK or MISSING for each required weight and example input file, and
probes whether each stage's module namespace imports cleanly.

Exits non-zero if anything is missing or fails to import.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	checker := precheck.NewChecker(
		procexec.NewHostExecutor(logger),
		logger,
		cfg.WeightsDir,
		cfg.ExamplesDir,
		cfg.Stages.Generator.Runner,
		cfg.Stages.Namespaces(),
	)
	report := checker.Run(cmd.Context())

	cmd.Println("Model weights:")
	for _, a := range report.Weights {
		cmd.Printf("  %-8s %s (%s)\n", a.Status, a.Name, a.Path)
	}
	cmd.Println("Example inputs:")
	for _, a := range report.Examples {
		cmd.Printf("  %-8s %s (%s)\n", a.Status, a.Name, a.Path)
	}
	cmd.Println("Stage imports:")
	for _, i := range report.Imports {
		if i.Detail != "" {
			cmd.Printf("  %-12s %s: %s\n", i.Status, i.Namespace, i.Detail)
		} else {
			cmd.Printf("  %-12s %s\n", i.Status, i.Namespace)
		}
	}

	if !report.AllOK() {
		return fmt.Errorf("readiness check found problems")
	}
	cmd.Println("\nAll checks passed.")
	return nil
}
