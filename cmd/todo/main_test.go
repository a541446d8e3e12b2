package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada/internal/ui"
)

// setup isolates config lookup and captures CLI output.
func setup(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{
		"TADA_BACKEND", "TADA_DATA_DIR", "TADA_KEY", "TADA_MYSQL_DSN",
		"TADA_THEME", "TADA_LOG_LEVEL", "TADA_LOG_FORMAT", "TADA_LOG_FILE",
	} {
		t.Setenv(k, "")
	}
	chdir(t, t.TempDir())

	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := ui.Stdout, ui.Stderr
	ui.Stdout, ui.Stderr = out, errOut
	t.Cleanup(func() {
		ui.Stdout, ui.Stderr = prevOut, prevErr
		ui.SetTheme("classic")
	})
	return out, errOut
}

func TestBadFlagIsUsageError(t *testing.T) {
	out, errOut := setup(t)

	assert.Equal(t, 2, run([]string{"-nope", "ls"}))
	assert.Contains(t, errOut.String(), "flag provided but not defined: -nope")
	assert.Contains(t, errOut.String(), "todo help")
	assert.Empty(t, out.String())
}

func TestHelpFlagPrintsHelp(t *testing.T) {
	for _, arg := range []string{"-h", "-help"} {
		out, errOut := setup(t)
		assert.Equal(t, 0, run([]string{arg}))
		assert.Contains(t, out.String(), "Subcommands:")
		assert.Empty(t, errOut.String())
	}
}

func TestInvalidConfigIsUsageError(t *testing.T) {
	_, errOut := setup(t)
	assert.Equal(t, 2, run([]string{"-backend", "redis", "ls"}))
	assert.Contains(t, errOut.String(), "redis")
}

func TestFileBackendEndToEnd(t *testing.T) {
	out, _ := setup(t)
	dir := t.TempDir()
	flags := []string{"-data-dir", dir, "-theme", "mono", "-log-file", filepath.Join(dir, "test.log")}

	require.Equal(t, 0, run(append(flags, "add", "Buy milk")))
	require.Equal(t, 0, run(append(flags, "add", "Walk dog")))
	require.Equal(t, 0, run(append(flags, "done", "2")))

	out.Reset()
	require.Equal(t, 0, run(append(flags, "ls")))
	assert.Contains(t, out.String(), " 1. [ ] Walk dog")
	assert.Contains(t, out.String(), " 2. [x] Buy milk")
	assert.FileExists(t, filepath.Join(dir, "my-todo.json"))
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
