package offline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/frame"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHDR(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sky.hdr")
	data := []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 1 +X 2\n")
	data = append(data, 128, 128, 128, 129, 64, 64, 128, 129)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestBakeWritesSixFaces(t *testing.T) {
	out := t.TempDir()
	res, paths, err := Bake(writeHDR(t), BakeOptions{Size: 4, OutDir: out})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Size)
	assert.Equal(t, 3, res.Mips)
	assert.Equal(t, 2, res.SourceWidth)
	require.Len(t, paths, 6)
	for _, p := range paths {
		assert.Equal(t, ".png", filepath.Ext(p))
		_, err := os.Stat(p)
		require.NoError(t, err)
	}
}

func TestBakeMissingSource(t *testing.T) {
	out := filepath.Join(t.TempDir(), "faces")
	_, paths, err := Bake(filepath.Join(t.TempDir(), "missing.hdr"), BakeOptions{Size: 4, OutDir: out})
	assert.ErrorIs(t, err, core.ErrSourceLoad)
	assert.Empty(t, paths)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSnapshot(t *testing.T) {
	cfg := lumen.DefaultConfig()
	cfg.Window.Width, cfg.Window.Height = 24, 16
	cfg.Renderer.Backend = lumen.BackendSoft
	cfg.Renderer.CubeMapSize = 8
	cfg.Renderer.EnvironmentMap = writeHDR(t)

	out := filepath.Join(t.TempDir(), "frame.png")
	st, err := Snapshot(cfg, SnapshotOptions{Frames: 2, Out: out})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), st.Frame)
	assert.Equal(t, []frame.Pass{frame.PassGeometry, frame.PassEnvironment, frame.PassLighting, frame.PassForward}, st.Passes)
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSnapshotKeepsGoingWithoutEnvironment(t *testing.T) {
	cfg := lumen.DefaultConfig()
	cfg.Window.Width, cfg.Window.Height = 8, 8
	cfg.Renderer.CubeMapSize = 4
	cfg.Renderer.EnvironmentMap = filepath.Join(t.TempDir(), "missing.hdr")

	st, err := Snapshot(cfg, SnapshotOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Frame)
}

func TestSnapshotRejectsBadViewType(t *testing.T) {
	cfg := lumen.DefaultConfig()
	cfg.Renderer.ViewType = "depth"
	_, err := Snapshot(cfg, SnapshotOptions{})
	assert.Error(t, err)
}
