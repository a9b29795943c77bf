package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopServe(context.Context, ServeRuntimeOptions) error { return nil }

func TestRootCmdHasSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd(normalizeOptions(Options{ServeRunner: noopServe}))

	for _, name := range []string{"serve", "format", "init-config", "version"} {
		_, _, err := root.Find([]string{name})
		assert.NoError(t, err, "find %s subcommand", name)
	}
}

func TestRunDefaultsToServe(t *testing.T) {
	t.Parallel()

	var got ServeRuntimeOptions
	err := Run(nil, Options{
		Stdin:  strings.NewReader(""),
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
		ServeRunner: func(_ context.Context, opts ServeRuntimeOptions) error {
			got = opts
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "js-beautify", got.Beautifier)
	assert.Equal(t, 5*time.Second, got.FormatTimeout)
	assert.Equal(t, "info", got.LogLevel)
	assert.Empty(t, got.Container)
}

func TestServeFlags(t *testing.T) {
	t.Parallel()

	var got ServeRuntimeOptions
	err := Run([]string{
		"serve",
		"--global-config", "/etc/beautify/formatter.json",
		"--beautifier", "/usr/local/bin/js-beautify",
		"--container", "web",
		"--format-timeout", "2s",
		"--log-level", "debug",
	}, Options{
		Stdin:  strings.NewReader(""),
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
		ServeRunner: func(_ context.Context, opts ServeRuntimeOptions) error {
			got = opts
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "/etc/beautify/formatter.json", got.GlobalConfigPath)
	assert.Equal(t, "/usr/local/bin/js-beautify", got.Beautifier)
	assert.Equal(t, "web", got.Container)
	assert.Equal(t, 2*time.Second, got.FormatTimeout)
	assert.Equal(t, "debug", got.LogLevel)
}

func TestServeRunnerError(t *testing.T) {
	t.Parallel()

	err := Run([]string{"serve"}, Options{
		Stdin:  strings.NewReader(""),
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
		ServeRunner: func(context.Context, ServeRuntimeOptions) error {
			return errors.New("stream closed")
		},
	})

	require.Error(t, err)
	assert.Equal(t, "stream closed", err.Error())
}

func TestDefaultServeRunnerRejectsInvalidLogLevel(t *testing.T) {
	t.Parallel()

	err := defaultServeRunner(context.Background(), ServeRuntimeOptions{
		Stdin:    strings.NewReader(""),
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
		LogLevel: "chatty",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestDefaultServeRunnerStopsAtEndOfInput(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	err := defaultServeRunner(context.Background(), ServeRuntimeOptions{
		Stdin:         strings.NewReader(""),
		Stdout:        &bytes.Buffer{},
		Stderr:        &stderr,
		Beautifier:    "js-beautify",
		FormatTimeout: time.Second,
		LogLevel:      "info",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server exited with error")
	assert.Contains(t, stderr.String(), "lsp.main")
}

func TestVersionCommandOutput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := Run([]string{"version"}, Options{
		Stdin:  strings.NewReader(""),
		Stdout: &out,
		Stderr: &bytes.Buffer{},
		BuildInfo: BuildInfo{
			Version:   "1.2.3",
			Commit:    "abc123",
			BuildDate: "2026-02-26T11:11:11Z\n",
		},
		ServeRunner: noopServe,
	})

	require.NoError(t, err)
	assert.Equal(t, "beautify-ls version=1.2.3 commit=abc123 build_date=2026-02-26T11:11:11Z\n", out.String())
}

func TestVersionDefaultsToPackageVersion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := Run([]string{"version"}, Options{
		Stdin:       strings.NewReader(""),
		Stdout:      &out,
		Stderr:      &bytes.Buffer{},
		ServeRunner: noopServe,
	})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "version=0.1.0")
}
