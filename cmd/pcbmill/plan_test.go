package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

var boardGCode = []string{
	"G21", "G90", "G55", "G17", "M3", "G1F1000Z0",
	"G1F1000X1Y2",
	"G91", "G1F400Z-3", "G90",
	"G91", "G1F1000Z3", "G90",
	"G1F1000X0Y0",
	"G91", "G1F400Z-3", "G90",
	"G1F60X3Y0",
	"G91", "G1F1000Z3", "G90",
	"M2",
}

func TestPlan(t *testing.T) {
	out, err := execute(t, "plan", "testdata/board.json")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(boardGCode, "\n")+"\n", out)
}

func TestPlan_Output(t *testing.T) {
	name := filepath.Join(t.TempDir(), "board.nc")
	out, err := execute(t, "plan", "testdata/board.json", "-o", name)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(boardGCode, "\n")+"\n", string(data))
}

func TestPlan_Leveling(t *testing.T) {
	dir := t.TempDir()
	probes := filepath.Join(dir, "probes.json")
	require.NoError(t, os.WriteFile(probes, []byte(`[
		{"X": -10, "Y": -10, "Z": -40.5},
		{"X": 100, "Y": -10, "Z": -40.5},
		{"X": -10, "Y": 100, "Z": -40.5},
		{"X": 100, "Y": 100, "Z": -40.5}
	]`), 0o644))
	cfg := filepath.Join(dir, "pcbmill.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[leveling]\nprobe_file = '"+filepath.ToSlash(probes)+"'\nreference_z = -40\ngranularity = 0\n"), 0o644))

	out, err := execute(t, "plan", "testdata/board.json", "--config", cfg)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(boardGCode))
	assert.Equal(t, "G1F1000Z-0.5", lines[5])
	assert.Equal(t, "M2", lines[len(lines)-1])
}

func TestPlan_Errors(t *testing.T) {
	_, err := execute(t, "plan")
	assert.Error(t, err)

	_, err = execute(t, "plan", "testdata/missing.json")
	assert.Error(t, err)

	_, err = execute(t, "plan", "testdata/board.json", "--config", "testdata/missing.toml")
	assert.Error(t, err)
}
