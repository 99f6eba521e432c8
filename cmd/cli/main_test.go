package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_RendersAndDumps(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := `
component "Toggle" {
  property "on" {
    value = false
  }
  element "root" {}
  watch {
    get "property" "on" {}
    set "attribute" "aria-pressed" {
      target = "root"
    }
  }
}
`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "toggle.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(src), 0600), "failed to set up test file")

	out, logs := &bytes.Buffer{}, &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, logs, []string{"-set", "Toggle.on=true", "-dump", "dot", filePath})

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), "digraph watchgraph {")
	require.Contains(t, logs.String(), "root.aria-pressed=true")
}

func TestRun_LoadError(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(`component "C" {`), 0600))

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{filePath})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
