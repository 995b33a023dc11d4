package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Faultbox/assetbridge/internal/config"
	"github.com/Faultbox/assetbridge/pkg/native"
)

const crate = "../../internal/scenedoc/testdata/crate.yaml"

func newTool() (*tool, *bytes.Buffer) {
	var buf bytes.Buffer
	return &tool{cfg: config.Default(), out: &buf, log: zap.NewNop()}, &buf
}

func TestInfo(t *testing.T) {
	tl, out := newTool()
	require.NoError(t, tl.run("info", []string{crate}))
	assert.Contains(t, out.String(), "name: crate")
	assert.Contains(t, out.String(), "Sun (directional)")
}

func TestRoundTrip(t *testing.T) {
	tl, out := newTool()
	require.NoError(t, tl.run("roundtrip", []string{crate}))
	assert.Contains(t, out.String(), "live_blocks:")
	assert.Contains(t, out.String(), "OK: scene \"crate\"")
}

func TestRoundTripHeapLimit(t *testing.T) {
	tl, _ := newTool()
	tl.cfg.Heap.InitialSize = 64
	tl.cfg.Heap.MaxSize = 256
	err := tl.run("rt", []string{"-q", crate})
	assert.ErrorIs(t, err, native.ErrAllocation)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		command string
		args    []string
	}{
		{"explode", nil},
		{"info", nil},
		{"roundtrip", []string{"a.yaml", "b.yaml"}},
		{"blob", nil},
		{"blob", []string{"shred"}},
		{"blob", []string{"pack", "out.blob"}},
		{"config", []string{"load"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			tl, _ := newTool()
			assert.ErrorIs(t, tl.run(tt.command, tt.args), errUsage)
		})
	}
}

func TestBlobPackUnpack(t *testing.T) {
	dir := t.TempDir()
	obj := filepath.Join(dir, "model.obj")
	mtl := filepath.Join(dir, "model.mtl")
	require.NoError(t, os.WriteFile(obj, []byte("v 0 0 0\n"), 0644))
	require.NoError(t, os.WriteFile(mtl, []byte("newmtl Wood\n"), 0644))

	stream := filepath.Join(dir, "model.blob")
	tl, out := newTool()
	require.NoError(t, tl.run("blob", []string{"pack", stream, obj, mtl}))
	assert.Contains(t, out.String(), "2 blobs")

	out.Reset()
	require.NoError(t, tl.run("blob", []string{"list", stream}))
	assert.Contains(t, out.String(), "(primary)")
	assert.Contains(t, out.String(), "model.mtl")

	outDir := filepath.Join(dir, "out")
	require.NoError(t, tl.run("blob", []string{"unpack", "-primary", "model.obj", stream, outDir}))
	got, err := os.ReadFile(filepath.Join(outDir, "model.obj"))
	require.NoError(t, err)
	assert.Equal(t, "v 0 0 0\n", string(got))
	got, err = os.ReadFile(filepath.Join(outDir, "model.mtl"))
	require.NoError(t, err)
	assert.Equal(t, "newmtl Wood\n", string(got))
}

func TestBlobListMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.blob")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF}, 0644))

	tl, _ := newTool()
	assert.ErrorIs(t, tl.run("blob", []string{"list", path}), native.ErrMalformedBlobStream)
}

func TestConfigSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenetool.toml")
	tl, _ := newTool()
	require.NoError(t, tl.run("config", []string{"save", path}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[transcode]")
}
