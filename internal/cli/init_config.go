package cli

import (
	"errors"
	"fmt"

	"github.com/cristianradulescu/beautify-ls/internal/config"
	"github.com/spf13/cobra"
)

type initConfigOptions struct {
	global       bool
	force        bool
	root         string
	globalConfig string
}

func newInitConfigCmd(opts Options) *cobra.Command {
	initOpts := initConfigOptions{globalConfig: config.DefaultGlobalConfigPath()}
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Create a formatter.json from the packaged defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.InitTargetLocal
			if initOpts.global {
				target = config.InitTargetGlobal
			}

			path, err := config.InitializeConfiguration(config.InitOptions{
				Target:     target,
				Force:      initOpts.force,
				Root:       initOpts.root,
				GlobalPath: initOpts.globalConfig,
			})
			if errors.Is(err, config.ErrConfigExists) {
				return fmt.Errorf("%w (use --force to overwrite)", err)
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(opts.Stdout, "Configuration written to %s\n", path)
			return err
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&initOpts.global, "global", false, "write the global configuration instead of the workspace one")
	fs.BoolVar(&initOpts.force, "force", false, "overwrite an existing configuration")
	fs.StringVar(&initOpts.root, "root", "", "workspace root (defaults to the working directory)")
	fs.StringVar(&initOpts.globalConfig, "global-config", initOpts.globalConfig, "path of the global formatter.json")
	return cmd
}
