package cli

import (
	"io"
	"os"

	"github.com/cristianradulescu/beautify-ls/internal/config"
	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

type Options struct {
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	BuildInfo   BuildInfo
	ServeRunner ServeRunner
}

// Run executes the command line with args, serving LSP on stdio when no
// subcommand is given.
func Run(args []string, opts Options) error {
	resolved := normalizeOptions(opts)
	root := newRootCmd(resolved)
	root.SetArgs(args)
	return root.Execute()
}

func normalizeOptions(opts Options) Options {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.ServeRunner == nil {
		opts.ServeRunner = defaultServeRunner
	}
	if opts.BuildInfo.Version == "" {
		opts.BuildInfo.Version = config.Version
	}
	return opts
}

func newRootCmd(opts Options) *cobra.Command {
	serveOpts := defaultServeFlags()
	cmd := &cobra.Command{
		Use:           config.Name,
		Short:         "Language server formatting CSS, SCSS, JavaScript, JSON and HTML with js-beautify",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeWithOptions(cmd.Context(), opts, serveOpts)
		},
	}
	cmd.SetIn(opts.Stdin)
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)
	bindServeFlags(cmd, &serveOpts)
	cmd.AddCommand(
		newServeCmd(opts),
		newFormatCmd(opts),
		newInitConfigCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}
