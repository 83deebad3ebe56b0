package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSamplesCommand(t *testing.T) {
	out, err := run(t, "samples")
	require.NoError(t, err)
	assert.Contains(t, out, "casualty_ay")
	assert.Contains(t, out, "tort_reform")
}

func TestIndexCommand(t *testing.T) {
	out, err := run(t, "index", "--schedule-sample", "tort_reform", "--reference", "2008-12-31")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "1.333333")
	assert.Contains(t, lines[2], "1.000000")
}

func TestOnLevelCommand(t *testing.T) {
	restated := filepath.Join(t.TempDir(), "restated.json")
	out, err := run(t, "onlevel",
		"--sample", "casualty_ay",
		"--column", "Incurred",
		"--schedule-sample", "tort_reform",
		"--vertical",
		"--restated", restated,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Incurred,2005,")
	assert.Contains(t, out, ",0.669975")
	assert.FileExists(t, restated)
}

func TestReserveCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "reserve", "--out", dir, filepath.Join("..", "..", "..", "configs", "tort_reform.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "tort_reform_cape_cod")
	assert.Contains(t, out, "total")
	assert.FileExists(t, filepath.Join(dir, "factors.csv"))
	assert.FileExists(t, filepath.Join(dir, "rows.csv"))
}
