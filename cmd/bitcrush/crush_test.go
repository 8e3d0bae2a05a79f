package main

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, "input.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestCrushCommandWritesJPEG(t *testing.T) {
	dir := t.TempDir()
	input := writePNG(t, dir, 30, 20)
	output := filepath.Join(dir, "out.jpg")

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"crush", input, "-o", output, "--quality", "50"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 30, cfg.Width)
	require.Equal(t, 20, cfg.Height)
	require.Contains(t, stdout.String(), "30x20")
}

func TestCrushCommandDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	input := writePNG(t, dir, 8, 8)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"crush", input})
	require.NoError(t, cmd.Execute())
	require.FileExists(t, filepath.Join(dir, "input.crushed.jpg"))
}

func TestCrushCommandErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("nope"), 0o600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"crush", filepath.Join(dir, "missing.png")}, "read input"},
		{"not an image", []string{"crush", garbage}, "decode image"},
		{"bad quality", []string{"crush", garbage, "--quality", "101"}, "--quality"},
		{"no input", []string{"crush"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCrushedPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "photo.crushed.jpg", crushedPath("photo.png"))
	require.Equal(t, filepath.Join("a", "b.crushed.jpg"), crushedPath(filepath.Join("a", "b.webp")))
}

func TestServeRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transform:\n  workers: 0\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--config", path})
	require.ErrorContains(t, cmd.Execute(), "transform.workers")
}
