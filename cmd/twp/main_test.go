package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFlagsDefaults(t *testing.T) {
	outputPath, bail, fileOffsets, padEnabled, verbose = "", false, false, false, false
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse([]string{"--bail", "--file-offsets", "-o", "out.txt"}))

	assert.True(t, bail)
	assert.True(t, fileOffsets)
	assert.Equal(t, "out.txt", outputPath)
	assert.True(t, padEnabled, "pad defaults true and wasn't overridden")
}

func TestRegisterFlagsPadDisable(t *testing.T) {
	outputPath, bail, fileOffsets, padEnabled, verbose = "", false, false, false, false
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse([]string{"--pad=false"}))
	assert.False(t, padEnabled)
}

func TestOpenInputDashMeansStdin(t *testing.T) {
	rc, err := openInput([]string{"-"})
	require.NoError(t, err)
	assert.Equal(t, io.NopCloser(os.Stdin), rc)
}

func TestOpenInputNoArgsMeansStdin(t *testing.T) {
	rc, err := openInput(nil)
	require.NoError(t, err)
	assert.Equal(t, io.NopCloser(os.Stdin), rc)
}

func TestRunDumpConfigPrintsResolvedFlags(t *testing.T) {
	outputPath, bail, fileOffsets, padEnabled, verbose = "", true, true, false, false

	r, w, err := os.Pipe()
	require.NoError(t, err)
	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	require.NoError(t, runDumpConfig())
	w.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "padding_enabled: false")
	assert.Contains(t, out, "bail: true")
	assert.Contains(t, out, "file_offsets: true")
}

func TestConfigFlagValueParsesLongAndEqualsForm(t *testing.T) {
	assert.Equal(t, "a.yaml", configFlagValue([]string{"--config", "a.yaml", "--bail"}))
	assert.Equal(t, "b.yaml", configFlagValue([]string{"--bail", "--config=b.yaml"}))
	assert.Equal(t, "", configFlagValue([]string{"--bail"}))
}

func TestLoadConfigFileAppliesDefaults(t *testing.T) {
	outputPath, bail, fileOffsets, padEnabled, verbose, configPath = "", false, false, true, false, ""

	path := filepath.Join(t.TempDir(), "twp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("padding_enabled: false\nbail: true\nfile_offsets: true\n"), 0o644))

	require.NoError(t, loadConfigFile(path))
	assert.False(t, padEnabled)
	assert.True(t, bail)
	assert.True(t, fileOffsets)
}
