// Package convert provides the convert command
package convert

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/coco2yolo/internal/conf"
	"github.com/tphakala/coco2yolo/internal/converter"
	"github.com/tphakala/coco2yolo/internal/errors"
	"github.com/tphakala/coco2yolo/internal/logger"
	"github.com/tphakala/coco2yolo/internal/observability"
	"github.com/tphakala/coco2yolo/internal/yolo"
)

// Command creates the convert command for converting a COCO annotation file.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a COCO keypoint annotation file to YOLO label files",
		Long: `Convert reads a COCO JSON annotation file and writes one YOLO pose label
file per annotated image into the output directory, along with the class
names file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx)
		},
	}

	// Set up flags specific to the 'convert' command
	setupFlags(cmd, ctx)

	return cmd
}

// setupFlags configures flags specific to the convert command.
func setupFlags(cmd *cobra.Command, ctx *conf.Context) {
	cmd.Flags().StringP("input", "j", "", "Path to COCO annotation JSON file")
	cmd.Flags().StringP("output", "o", "", "Path to label output directory")
	cmd.Flags().String("names", "", "Path to class names file (default: <output>/coco.names)")
	cmd.Flags().Bool("skip-invalid", false, "Skip and log annotations that cannot be converted instead of aborting")
	cmd.Flags().Int("workers", 0, "Concurrent label file writes (default: number of CPUs)")
	cmd.Flags().String("manifest", "", "Also write an Ultralytics dataset manifest (data.yaml) to this path")
	cmd.Flags().String("dataset", "", "Dataset root written to the manifest (default: the directory above \"labels\" in the output path)")
	cmd.Flags().String("train", yolo.DefaultTrainImages, "Training images in the manifest, relative to the dataset root")
	cmd.Flags().String("val", yolo.DefaultValImages, "Validation images in the manifest, relative to the dataset root")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics for the run to this .prom textfile")

	ctx.RegisterFlags(cmd.Name(), map[string]string{
		"convert.input":       "input",
		"convert.output":      "output",
		"convert.names":       "names",
		"convert.skipinvalid": "skip-invalid",
		"convert.workers":     "workers",
		"convert.manifest":    "manifest",
		"convert.dataset":     "dataset",
		"convert.train":       "train",
		"convert.val":         "val",
		"convert.metricsfile": "metrics-file",
	})
}

func run(cmd *cobra.Command, ctx *conf.Context) error {
	settings := ctx.Settings.Convert
	if err := settings.RequireInput(); err != nil {
		return err
	}
	if err := settings.RequireOutput(); err != nil {
		return err
	}

	log := ctx.Logger.Module("cmd")

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	c, err := converter.New(converter.Config{
		InputPath:    settings.Input,
		OutputDir:    settings.Output,
		NamesPath:    settings.Names,
		ManifestPath: settings.Manifest,
		DatasetRoot:  settings.Dataset,
		TrainImages:  settings.Train,
		ValImages:    settings.Val,
		Workers:      settings.Workers,
		SkipInvalid:  settings.SkipInvalid,
	},
		converter.WithLogger(ctx.Logger.Module("converter")),
		converter.WithMetrics(m.Converter),
	)
	if err != nil {
		return err
	}

	res, runErr := c.Run(cmd.Context())

	if settings.MetricsFile != "" {
		if err := m.WriteTextfile(settings.MetricsFile); err != nil {
			log.Warn("failed to write metrics textfile",
				logger.String("path", settings.MetricsFile),
				logger.Error(err))
			if runErr == nil {
				runErr = errors.FileError(err, settings.MetricsFile)
			}
		}
	}

	if runErr != nil {
		return runErr
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d label files to %s (%d annotations converted, %d skipped)\n",
		res.FilesWritten, settings.Output, res.Converted, res.Skipped)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Class names: %s\n", res.NamesPath)
	if res.ManifestPath != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dataset manifest: %s\n", res.ManifestPath)
	}
	return nil
}
