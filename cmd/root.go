package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/coco2yolo/cmd/convert"
	"github.com/tphakala/coco2yolo/cmd/names"
	"github.com/tphakala/coco2yolo/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *conf.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "coco2yolo",
		Short:         "Convert COCO keypoint annotations to YOLO pose labels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, ctx)

	// Add sub-commands to the root command.
	rootCmd.AddCommand(
		convert.Command(ctx),
		names.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if ctx.Console == nil {
			ctx.Console = cmd.ErrOrStderr()
		}
		// persistent flags are merged into the running command's flag set
		if err := conf.BindFlags(ctx.Viper, cmd.Flags(), globalBindings()); err != nil {
			return err
		}
		return ctx.Initialize(cmd.Name(), cmd.Flags())
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *conf.Context) {
	rootCmd.PersistentFlags().StringVar(&ctx.ConfigFile, "config", "", "Path to config file (default: ./coco2yolo.yaml or ~/.config/coco2yolo/coco2yolo.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().String("log-file", "", "Write JSON logs to this file")
	rootCmd.PersistentFlags().String("log-level", "info", "Console log level: trace, debug, info, warn, error")
}

// globalBindings maps configuration keys to the root persistent flags
func globalBindings() map[string]string {
	return map[string]string{
		"debug":     "debug",
		"log.file":  "log-file",
		"log.level": "log-level",
	}
}
