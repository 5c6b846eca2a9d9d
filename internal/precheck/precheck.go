// Package precheck implements the advisory readiness diagnostics: are the
// model weights and example inputs where the pipeline expects them, and do
// the external stage modules import cleanly. It never mutates state and
// never blocks a run; the CLI entry point merely reflects its findings in
// the exit code.
package precheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"abforge/internal/procexec"
)

// Status of a single artifact check.
type Status string

const (
	OK      Status = "OK"
	Missing Status = "MISSING"
)

// WeightFiles are the model checkpoints every real run needs.
var WeightFiles = []string{
	"RFdiffusion_Ab.pt",
	"ProteinMPNN_v48_noise_020.pt",
	"RF2_ab.pt",
}

// ExampleFiles are the bundled example inputs the quickstart run uses.
var ExampleFiles = []string{
	"rsv_site3.pdb",
	"hu-4D5-8_Fv.pdb",
}

// ArtifactResult is the outcome of one file-presence check. Checks are
// independent and order-insensitive.
type ArtifactResult struct {
	Name   string
	Path   string
	Status Status
}

// ImportStatus is the tri-state outcome of one import-health probe.
type ImportStatus string

const (
	ImportOK ImportStatus = "OK"
	// ImportError means the probe ran and the module failed to load.
	ImportError ImportStatus = "ERROR"
	// ImportNotReached means an earlier interpreter-level failure made
	// probing this namespace pointless.
	ImportNotReached ImportStatus = "NOT_REACHED"
)

// ImportResult is the outcome of one import-health probe.
type ImportResult struct {
	Namespace string
	Status    ImportStatus
	Detail    string
}

// Report aggregates all diagnostics from one precheck pass.
type Report struct {
	Weights  []ArtifactResult
	Examples []ArtifactResult
	Imports  []ImportResult
}

// AllOK reports whether every artifact is present and every import loads.
func (r *Report) AllOK() bool {
	for _, a := range r.Weights {
		if a.Status != OK {
			return false
		}
	}
	for _, a := range r.Examples {
		if a.Status != OK {
			return false
		}
	}
	for _, i := range r.Imports {
		if i.Status != ImportOK {
			return false
		}
	}
	return true
}

// Checker runs the readiness diagnostics.
type Checker struct {
	exec        procexec.Executor
	log         *zap.Logger
	weightsDir  string
	examplesDir string
	interpreter []string // argv prefix launching the stage interpreter
	namespaces  []string // stage module namespaces, probed in order
}

// NewChecker builds a readiness checker. interpreter is the argv prefix
// that launches the stage tools' interpreter (e.g. poetry run python);
// namespaces are the stage module namespaces to probe.
func NewChecker(exec procexec.Executor, log *zap.Logger, weightsDir, examplesDir string, interpreter, namespaces []string) *Checker {
	return &Checker{
		exec:        exec,
		log:         log,
		weightsDir:  weightsDir,
		examplesDir: examplesDir,
		interpreter: interpreter,
		namespaces:  namespaces,
	}
}

// Run performs every check and returns the aggregate report. File checks
// are pure stat calls; import checks shell out to the interpreter.
func (c *Checker) Run(ctx context.Context) *Report {
	report := &Report{}
	for _, name := range WeightFiles {
		report.Weights = append(report.Weights, c.checkFile(c.weightsDir, name))
	}
	for _, name := range ExampleFiles {
		report.Examples = append(report.Examples, c.checkFile(c.examplesDir, name))
	}
	report.Imports = c.checkImports(ctx)
	return report
}

func (c *Checker) checkFile(dir, name string) ArtifactResult {
	path := filepath.Join(dir, name)
	res := ArtifactResult{Name: name, Path: path, Status: OK}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		res.Status = Missing
	}
	c.log.Debug("artifact check", zap.String("path", path), zap.String("status", string(res.Status)))
	return res
}

// checkImports probes each stage namespace with an interpreter-level
// import. A module that fails to import is reported with its error and
// probing continues; a probe that cannot launch the interpreter at all
// marks the remaining namespaces not-reached.
func (c *Checker) checkImports(ctx context.Context) []ImportResult {
	results := make([]ImportResult, 0, len(c.namespaces))
	reachable := true
	for _, ns := range c.namespaces {
		if !reachable {
			results = append(results, ImportResult{Namespace: ns, Status: ImportNotReached})
			continue
		}
		results = append(results, c.probeImport(ctx, ns, &reachable))
	}
	return results
}

func (c *Checker) probeImport(ctx context.Context, ns string, reachable *bool) ImportResult {
	if len(c.interpreter) == 0 {
		*reachable = false
		return ImportResult{Namespace: ns, Status: ImportNotReached, Detail: "no interpreter configured"}
	}

	args := append(append([]string{}, c.interpreter[1:]...), "-c", fmt.Sprintf("import %s", ns))
	res, err := c.exec.Run(ctx, procexec.Command{Binary: c.interpreter[0], Args: args})
	if err != nil {
		// Interpreter itself would not start; later probes cannot run.
		*reachable = false
		return ImportResult{Namespace: ns, Status: ImportNotReached, Detail: err.Error()}
	}
	if !res.Success() {
		return ImportResult{Namespace: ns, Status: ImportError, Detail: res.StderrTail(300)}
	}
	return ImportResult{Namespace: ns, Status: ImportOK}
}
