package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cristianradulescu/beautify-ls/internal/beautify"
	"github.com/cristianradulescu/beautify-ls/internal/config"
	"github.com/cristianradulescu/beautify-ls/internal/logging"
	"github.com/cristianradulescu/beautify-ls/internal/runner"
	"github.com/cristianradulescu/beautify-ls/internal/server"
	"github.com/spf13/cobra"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

const defaultFormatTimeout = 5 * time.Second

type serveFlags struct {
	globalConfig  string
	beautifier    string
	container     string
	formatTimeout time.Duration
	logLevel      string
}

func defaultServeFlags() serveFlags {
	return serveFlags{
		globalConfig:  config.DefaultGlobalConfigPath(),
		beautifier:    beautify.DefaultBinary,
		formatTimeout: defaultFormatTimeout,
		logLevel:      "info",
	}
}

func bindServeFlags(cmd *cobra.Command, flags *serveFlags) {
	fs := cmd.Flags()
	fs.StringVar(&flags.globalConfig, "global-config", flags.globalConfig, "path of the global formatter.json")
	fs.StringVar(&flags.beautifier, "beautifier", flags.beautifier, "js-beautify executable")
	fs.StringVar(&flags.container, "container", "", "run the beautifier inside this running docker container")
	fs.DurationVar(&flags.formatTimeout, "format-timeout", flags.formatTimeout, "maximum duration of a single beautifier run")
	fs.StringVar(&flags.logLevel, "log-level", flags.logLevel, "log level (debug, info, warn, error)")
}

type ServeRuntimeOptions struct {
	Stdin            io.Reader
	Stdout           io.Writer
	Stderr           io.Writer
	BuildInfo        BuildInfo
	GlobalConfigPath string
	Beautifier       string
	Container        string
	FormatTimeout    time.Duration
	LogLevel         string
}

type ServeRunner func(ctx context.Context, opts ServeRuntimeOptions) error

func newServeCmd(opts Options) *cobra.Command {
	serveOpts := defaultServeFlags()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeWithOptions(cmd.Context(), opts, serveOpts)
		},
	}
	bindServeFlags(cmd, &serveOpts)
	return cmd
}

func runServeWithOptions(ctx context.Context, opts Options, flags serveFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return opts.ServeRunner(ctx, ServeRuntimeOptions{
		Stdin:            opts.Stdin,
		Stdout:           opts.Stdout,
		Stderr:           opts.Stderr,
		BuildInfo:        opts.BuildInfo,
		GlobalConfigPath: flags.globalConfig,
		Beautifier:       flags.beautifier,
		Container:        flags.container,
		FormatTimeout:    flags.formatTimeout,
		LogLevel:         flags.logLevel,
	})
}

// newRunner picks where the beautifier executes.
func newRunner(container string) runner.Runner {
	if container != "" {
		return runner.Docker{Container: container}
	}
	return runner.Local{}
}

// validator checks the beautifier can be started once the client is ready.
func validator(r runner.Runner, container string, binary string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if container != "" {
			if err := runner.ValidateContainer(ctx, container); err != nil {
				return err
			}
		}
		return runner.ValidateBinary(ctx, r, binary)
	}
}

type stdio struct {
	io.Reader
	io.Writer
}

// Close is a no-op; the process owns stdin and stdout.
func (stdio) Close() error {
	return nil
}

func defaultServeRunner(ctx context.Context, opts ServeRuntimeOptions) error {
	logger, err := logging.New(opts.Stderr, opts.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	mainLogger := logger.Named(logging.NameLSP).Named(logging.NameMain)

	mainLogger.Info("Starting language server",
		zap.String("version", opts.BuildInfo.Version),
		zap.String("beautifier", opts.Beautifier),
		zap.String("container", opts.Container),
		zap.String("globalConfig", opts.GlobalConfigPath))

	stream := jsonrpc2.NewStream(stdio{Reader: opts.Stdin, Writer: opts.Stdout})
	conn := jsonrpc2.NewConn(stream)
	mainLogger.Info("LSP server connection established")

	r := newRunner(opts.Container)
	lspServer := server.New(conn, server.Options{
		GlobalConfigPath: opts.GlobalConfigPath,
		Beautifier:       beautify.NewJSBeautify(r, opts.Beautifier),
		FormatTimeout:    opts.FormatTimeout,
		Validate:         validator(r, opts.Container, opts.Beautifier),
		Logger:           logger,
	})
	conn.Go(ctx, lspServer.Handle)

	mainLogger.Info("LSP server is running, waiting for requests...")
	<-conn.Done()

	if err := conn.Err(); err != nil {
		mainLogger.Error("LSP server stopped with error", zap.Error(err))
		return fmt.Errorf("server exited with error: %w", err)
	}

	mainLogger.Info("LSP server shutdown complete")
	return nil
}
