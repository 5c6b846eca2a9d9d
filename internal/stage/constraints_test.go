package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLoopRange(t *testing.T) {
	tests := []struct {
		token string
		want  LoopRange
	}{
		{"L1:8-13", LoopRange{Label: "L1", Min: 8, Max: 13}},
		{"L2:7", LoopRange{Label: "L2", Min: 7, Max: 7}},
		{" H3:5-13 ", LoopRange{Label: "H3", Min: 5, Max: 13}},
	}
	for _, tt := range tests {
		got, err := ParseLoopRange(tt.token)
		require.NoError(t, err, tt.token)
		assert.Equal(t, tt.want, got, tt.token)
	}
}

func TestParseLoopRange_Malformed(t *testing.T) {
	bad := []string{
		"",
		"L1",
		"L1:",
		":8-13",
		"L1:a-13",
		"L1:8-b",
		"L1:x",
		"L1:13-8", // inverted
		"L1:0",    // non-positive
		"L1:-3-5", // negative lower
	}
	for _, token := range bad {
		_, err := ParseLoopRange(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestLoopRange_String(t *testing.T) {
	assert.Equal(t, "L1:8-13", LoopRange{Label: "L1", Min: 8, Max: 13}.String())
	assert.Equal(t, "L2:7", LoopRange{Label: "L2", Min: 7, Max: 7}.String())
}

func validConstraints() *DesignConstraints {
	return &DesignConstraints{
		TargetPDB:       "/data/target.pdb",
		FrameworkPDB:    "/data/framework.pdb",
		HotspotResidues: []string{"T305", "T456"},
		DesignLoops:     []LoopRange{{Label: "L1", Min: 8, Max: 13}, {Label: "H3", Min: 5, Max: 13}},
		NumDesigns:      2,
		DiffusionSteps:  50,
		Deterministic:   true,
	}
}

func TestDesignConstraints_Validate(t *testing.T) {
	require.NoError(t, validConstraints().Validate())

	mutations := map[string]func(*DesignConstraints){
		"no target":       func(c *DesignConstraints) { c.TargetPDB = "" },
		"no framework":    func(c *DesignConstraints) { c.FrameworkPDB = "" },
		"no hotspots":     func(c *DesignConstraints) { c.HotspotResidues = nil },
		"blank hotspot":   func(c *DesignConstraints) { c.HotspotResidues = []string{" "} },
		"no loops":        func(c *DesignConstraints) { c.DesignLoops = nil },
		"inverted loop":   func(c *DesignConstraints) { c.DesignLoops[0] = LoopRange{Label: "L1", Min: 9, Max: 3} },
		"zero designs":    func(c *DesignConstraints) { c.NumDesigns = 0 },
		"too many":        func(c *DesignConstraints) { c.NumDesigns = MaxDesigns + 1 },
		"too few steps":   func(c *DesignConstraints) { c.DiffusionSteps = MinDiffusionSteps - 1 },
		"too many steps":  func(c *DesignConstraints) { c.DiffusionSteps = MaxDiffusionSteps + 1 },
	}
	for name, mutate := range mutations {
		c := validConstraints()
		mutate(c)
		assert.Error(t, c.Validate(), name)
	}
}

func TestDesignConstraints_Rendering(t *testing.T) {
	c := validConstraints()
	assert.Equal(t, "[T305,T456]", c.HotspotsArg())
	assert.Equal(t, "[L1:8-13,H3:5-13]", c.LoopsArg())
}
