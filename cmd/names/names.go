// Package names provides the names command
package names

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/coco2yolo/internal/conf"
	"github.com/tphakala/coco2yolo/internal/converter"
)

// Command creates the names command, which writes only the class names file.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Write the class names file of a COCO annotation file",
		Long: `Names writes one category name per line, ordered by ascending category id,
so that line i names YOLO class i.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx)
		},
	}

	setupFlags(cmd, ctx)

	return cmd
}

func setupFlags(cmd *cobra.Command, ctx *conf.Context) {
	cmd.Flags().StringP("input", "j", "", "Path to COCO annotation JSON file")
	cmd.Flags().StringP("output", "o", ".", "Directory for coco.names when --names is not set")
	cmd.Flags().String("names", "", "Path to class names file (default: <output>/coco.names)")

	ctx.RegisterFlags(cmd.Name(), map[string]string{
		"convert.input":  "input",
		"convert.output": "output",
		"convert.names":  "names",
	})
}

func run(cmd *cobra.Command, ctx *conf.Context) error {
	settings := ctx.Settings.Convert
	if err := settings.RequireInput(); err != nil {
		return err
	}

	output := settings.Output
	if output == "" {
		output = "."
	}

	c, err := converter.New(converter.Config{
		InputPath: settings.Input,
		OutputDir: output,
		NamesPath: settings.Names,
	}, converter.WithLogger(ctx.Logger.Module("converter")))
	if err != nil {
		return err
	}

	path, err := c.WriteNames(cmd.Context())
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Class names: %s\n", path)
	return nil
}
