package shaders

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/gekko3d/lumen/pbr/rt/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxLightsMatchesRegistryCapacity(t *testing.T) {
	re := regexp.MustCompile(`const MAX_LIGHTS: u32 = (\d+)u;`)
	m := re.FindStringSubmatch(LightsWGSL)
	require.Len(t, m, 2)
	n, err := strconv.Atoi(m[1])
	require.NoError(t, err)
	assert.Equal(t, core.MaxLights, n)

	assert.Contains(t, LightingWGSL, "const MAX_LIGHTS")
	assert.Contains(t, ForwardWGSL, "const MAX_LIGHTS")
}

func TestLightProgramsShareContract(t *testing.T) {
	lighting, ok := Desc(LightingKey)
	require.True(t, ok)
	forward, ok := Desc(ForwardKey)
	require.True(t, ok)

	require.Len(t, lighting.Arrays, 1)
	assert.Equal(t, lighting.Arrays, forward.Arrays)
	assert.Equal(t, core.LightArrayUniform, lighting.Arrays[0].Name)
	assert.Equal(t, core.MaxLights, lighting.Arrays[0].Length)

	var fields []string
	for _, f := range lighting.Arrays[0].Fields {
		fields = append(fields, f.Name)
	}
	assert.Equal(t, []string{"position", "direction", "color", "param1"}, fields)

	for _, d := range []string{LightingKey, ForwardKey} {
		desc, _ := Desc(d)
		found := false
		for _, u := range desc.Uniforms {
			if u.Name == core.LightAmountUniform {
				found = true
			}
		}
		assert.True(t, found, d)
	}
}

func TestDescsAreComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Descs() {
		assert.False(t, seen[d.Key], "duplicate key %s", d.Key)
		seen[d.Key] = true
		assert.NotEmpty(t, d.Source, d.Key)
		assert.Contains(t, d.Source, "fn vs_main", d.Key)
		assert.Contains(t, d.Source, "fn fs_main", d.Key)
		assert.NotEmpty(t, d.Outputs, d.Key)
	}
	assert.Len(t, seen, 6)
	_, ok := Desc("missing")
	assert.False(t, ok)
}
