// Package stage defines the three external pipeline stages (structure
// generation, sequence design, structure validation) behind a single Runner
// capability, plus the design constraints that drive structure generation.
package stage

import (
	"fmt"
	"strconv"
	"strings"
)

// Bounds on the tunable generation parameters. These mirror the limits the
// upstream tooling accepts.
const (
	MinDesigns = 1
	MaxDesigns = 10

	MinDiffusionSteps = 15
	MaxDiffusionSteps = 200
)

// LoopRange is the allowed length range for one CDR loop, e.g. L1:8-13.
// A fixed-length loop has Min == Max.
type LoopRange struct {
	Label string
	Min   int
	Max   int
}

// Validate checks the range is well-formed: positive bounds, Min <= Max.
func (lr LoopRange) Validate() error {
	if lr.Label == "" {
		return fmt.Errorf("loop range has empty label")
	}
	if lr.Min <= 0 || lr.Max <= 0 {
		return fmt.Errorf("loop %s: bounds must be positive, got %d-%d", lr.Label, lr.Min, lr.Max)
	}
	if lr.Min > lr.Max {
		return fmt.Errorf("loop %s: lower bound %d exceeds upper bound %d", lr.Label, lr.Min, lr.Max)
	}
	return nil
}

// String renders the range back into token form: "L1:8-13" or "L2:7".
func (lr LoopRange) String() string {
	if lr.Min == lr.Max {
		return fmt.Sprintf("%s:%d", lr.Label, lr.Min)
	}
	return fmt.Sprintf("%s:%d-%d", lr.Label, lr.Min, lr.Max)
}

// ParseLoopRange parses a single "label:range" token, where range is either
// "lower-upper" or a single integer.
func ParseLoopRange(token string) (LoopRange, error) {
	label, spec, ok := strings.Cut(strings.TrimSpace(token), ":")
	if !ok || label == "" || spec == "" {
		return LoopRange{}, fmt.Errorf("malformed loop token %q: want label:range", token)
	}

	lr := LoopRange{Label: label}
	if lo, hi, ok := strings.Cut(spec, "-"); ok {
		var err error
		if lr.Min, err = strconv.Atoi(lo); err != nil {
			return LoopRange{}, fmt.Errorf("loop %s: bad lower bound %q", label, lo)
		}
		if lr.Max, err = strconv.Atoi(hi); err != nil {
			return LoopRange{}, fmt.Errorf("loop %s: bad upper bound %q", label, hi)
		}
	} else {
		n, err := strconv.Atoi(spec)
		if err != nil {
			return LoopRange{}, fmt.Errorf("loop %s: bad length %q", label, spec)
		}
		lr.Min, lr.Max = n, n
	}

	if err := lr.Validate(); err != nil {
		return LoopRange{}, err
	}
	return lr, nil
}

// ParseLoopRanges parses a list of "label:range" tokens.
func ParseLoopRanges(tokens []string) ([]LoopRange, error) {
	out := make([]LoopRange, 0, len(tokens))
	for _, tok := range tokens {
		lr, err := ParseLoopRange(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, nil
}

// DesignConstraints is the full input contract of the structure generator:
// which target to bind, which framework to graft onto, and what structural
// variation to explore.
type DesignConstraints struct {
	TargetPDB       string
	FrameworkPDB    string
	HotspotResidues []string
	DesignLoops     []LoopRange
	NumDesigns      int
	DiffusionSteps  int
	Deterministic   bool
}

// Validate checks the constraints are complete and within bounds. It does
// not touch the filesystem; path existence is checked by the generator
// adapter immediately before launch.
func (c *DesignConstraints) Validate() error {
	if c.TargetPDB == "" {
		return fmt.Errorf("target structure path is required")
	}
	if c.FrameworkPDB == "" {
		return fmt.Errorf("framework structure path is required")
	}
	if len(c.HotspotResidues) == 0 {
		return fmt.Errorf("at least one hotspot residue is required")
	}
	for _, h := range c.HotspotResidues {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("hotspot residues must be non-empty")
		}
	}
	if len(c.DesignLoops) == 0 {
		return fmt.Errorf("at least one design loop is required")
	}
	for _, lr := range c.DesignLoops {
		if err := lr.Validate(); err != nil {
			return err
		}
	}
	if c.NumDesigns < MinDesigns || c.NumDesigns > MaxDesigns {
		return fmt.Errorf("num designs %d out of range %d-%d", c.NumDesigns, MinDesigns, MaxDesigns)
	}
	if c.DiffusionSteps < MinDiffusionSteps || c.DiffusionSteps > MaxDiffusionSteps {
		return fmt.Errorf("diffusion steps %d out of range %d-%d",
			c.DiffusionSteps, MinDiffusionSteps, MaxDiffusionSteps)
	}
	return nil
}

// bracketList renders tokens in the bracketed comma form the generator's
// configuration overrides expect: [T305,T456].
func bracketList(tokens []string) string {
	return "[" + strings.Join(tokens, ",") + "]"
}

// HotspotsArg renders the hotspot residues for the generator command line.
func (c *DesignConstraints) HotspotsArg() string {
	return bracketList(c.HotspotResidues)
}

// LoopsArg renders the design loops for the generator command line.
func (c *DesignConstraints) LoopsArg() string {
	tokens := make([]string, 0, len(c.DesignLoops))
	for _, lr := range c.DesignLoops {
		tokens = append(tokens, lr.String())
	}
	return bracketList(tokens)
}
