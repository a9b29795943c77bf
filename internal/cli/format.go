package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cristianradulescu/beautify-ls/internal/beautify"
	"github.com/cristianradulescu/beautify-ls/internal/config"
	"github.com/cristianradulescu/beautify-ls/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type formatOptions struct {
	language     string
	write        bool
	check        bool
	jobs         int
	globalConfig string
	beautifier   string
	container    string
	timeout      time.Duration
}

type formatResult struct {
	path      string
	source    string
	formatted string
}

func (r formatResult) changed() bool {
	return r.formatted != r.source
}

func newFormatCmd(opts Options) *cobra.Command {
	formatOpts := formatOptions{
		jobs:         runtime.NumCPU(),
		globalConfig: config.DefaultGlobalConfigPath(),
		beautifier:   beautify.DefaultBinary,
		timeout:      defaultFormatTimeout,
	}
	cmd := &cobra.Command{
		Use:   "format [file...|-]",
		Short: "Beautify CSS, SCSS, JavaScript, JSON and HTML files",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				for _, arg := range args {
					if strings.TrimSpace(arg) == "-" {
						return errors.New("stdin cannot be combined with file paths")
					}
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if formatOpts.write && formatOpts.check {
				return errors.New("--write and --check are mutually exclusive")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			b := beautify.NewJSBeautify(newRunner(formatOpts.container), formatOpts.beautifier)

			if len(args) == 0 || strings.TrimSpace(args[0]) == "-" {
				return formatStdin(ctx, b, opts, formatOpts)
			}
			return formatFiles(ctx, b, opts, formatOpts, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&formatOpts.language, "language", "", "language id of the input (css, scss, javascript, json, html); inferred from the file extension when empty")
	fs.BoolVarP(&formatOpts.write, "write", "w", false, "write result back to the files")
	fs.BoolVar(&formatOpts.check, "check", false, "list files that would change and fail if any")
	fs.IntVar(&formatOpts.jobs, "jobs", formatOpts.jobs, "number of files formatted in parallel")
	fs.StringVar(&formatOpts.globalConfig, "global-config", formatOpts.globalConfig, "path of the global formatter.json")
	fs.StringVar(&formatOpts.beautifier, "beautifier", formatOpts.beautifier, "js-beautify executable")
	fs.StringVar(&formatOpts.container, "container", "", "run the beautifier inside this running docker container")
	fs.DurationVar(&formatOpts.timeout, "timeout", formatOpts.timeout, "maximum duration of a single beautifier run")
	return cmd
}

func formatStdin(ctx context.Context, b beautify.Beautifier, opts Options, formatOpts formatOptions) error {
	if formatOpts.write {
		return errors.New("--write requires a file path")
	}
	if formatOpts.language == "" {
		return errors.New("--language is required when reading stdin")
	}

	src, err := io.ReadAll(opts.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}

	formatted, err := beautifyText(ctx, b, formatOpts, root, formatOpts.language, string(src))
	if err != nil {
		return err
	}
	if formatOpts.check {
		if formatted != string(src) {
			fmt.Fprintln(opts.Stdout, "-")
			return errors.New("1 file would be reformatted")
		}
		return nil
	}

	_, err = io.WriteString(opts.Stdout, formatted)
	return err
}

func formatFiles(ctx context.Context, b beautify.Beautifier, opts Options, formatOpts formatOptions, paths []string) error {
	results := make([]formatResult, len(paths))

	jobs := formatOpts.jobs
	if jobs < 1 {
		jobs = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			result, err := formatFile(gctx, b, formatOpts, path)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	changed := 0
	for _, result := range results {
		switch {
		case formatOpts.check:
			if result.changed() {
				changed++
				fmt.Fprintln(opts.Stdout, result.path)
			}
		case formatOpts.write:
			if err := writeFormattedOutput(result.path, result.source, result.formatted); err != nil {
				return err
			}
		default:
			if _, err := io.WriteString(opts.Stdout, result.formatted); err != nil {
				return err
			}
		}
	}

	if changed > 0 {
		return fmt.Errorf("%d file(s) would be reformatted", changed)
	}
	return nil
}

func formatFile(ctx context.Context, b beautify.Beautifier, formatOpts formatOptions, path string) (formatResult, error) {
	languageID := formatOpts.language
	if languageID == "" {
		inferred, ok := beautify.LanguageFromPath(path)
		if !ok {
			return formatResult{}, fmt.Errorf("cannot infer language of %q, use --language", path)
		}
		languageID = inferred
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return formatResult{}, fmt.Errorf("read file %q: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return formatResult{}, fmt.Errorf("resolve path %q: %w", path, err)
	}

	formatted, err := beautifyText(ctx, b, formatOpts, utils.FindProjectRoot(absPath), languageID, string(src))
	if err != nil {
		return formatResult{}, fmt.Errorf("format %q: %w", path, err)
	}

	return formatResult{path: path, source: string(src), formatted: formatted}, nil
}

// beautifyText resolves the options of the workspace at root and runs the
// beautifier. Empty output leaves the text unchanged.
func beautifyText(ctx context.Context, b beautify.Beautifier, formatOpts formatOptions, root string, languageID string, text string) (string, error) {
	if formatOpts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, formatOpts.timeout)
		defer cancel()
	}

	loader := config.NewLoader(root, formatOpts.globalConfig)
	formatted, err := beautify.NewDispatcher(b, loader, nil).Dispatch(ctx, languageID, text)
	if errors.Is(err, beautify.ErrUnsupportedLanguage) {
		return "", fmt.Errorf("%w: %s", err, languageID)
	}
	if err != nil {
		return "", err
	}
	if formatted == "" {
		return text, nil
	}

	return formatted, nil
}

func writeFormattedOutput(path string, src string, formatted string) error {
	if formatted == src {
		return nil
	}
	mode := os.FileMode(0o644)
	if st, statErr := os.Stat(path); statErr == nil {
		mode = st.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(formatted), mode); err != nil {
		return fmt.Errorf("write file %q: %w", path, err)
	}
	return nil
}
