// conf/validate.go

package conf

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tphakala/coco2yolo/internal/errors"
)

var (
	ErrMissingInput  = errors.NewStd("input annotation file not set")
	ErrMissingOutput = errors.NewStd("output directory not set")
)

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateLogSettings(&settings.Log)...)
	ve.Errors = append(ve.Errors, validateConvertSettings(&settings.Convert)...)

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func validateLogSettings(settings *LogSettings) []string {
	var problems []string

	if !slices.Contains(validLogLevels, strings.ToLower(settings.Level)) {
		problems = append(problems, fmt.Sprintf("log.level %q must be one of %s", settings.Level, strings.Join(validLogLevels, ", ")))
	}

	for _, module := range slices.Sorted(maps.Keys(settings.Modules)) {
		if level := settings.Modules[module]; !slices.Contains(validLogLevels, strings.ToLower(level)) {
			problems = append(problems, fmt.Sprintf("log.modules.%s %q must be one of %s", module, level, strings.Join(validLogLevels, ", ")))
		}
	}

	return problems
}

func validateConvertSettings(settings *ConvertSettings) []string {
	var problems []string

	if settings.Workers < 0 {
		problems = append(problems, fmt.Sprintf("convert.workers must be 0 or positive, got %d", settings.Workers))
	}

	if settings.MetricsFile != "" && filepath.Ext(settings.MetricsFile) != ".prom" {
		problems = append(problems, fmt.Sprintf("convert.metricsfile %q must have a .prom extension", settings.MetricsFile))
	}

	if settings.Manifest != "" {
		if ext := filepath.Ext(settings.Manifest); ext != ".yaml" && ext != ".yml" {
			problems = append(problems, fmt.Sprintf("convert.manifest %q must have a .yaml or .yml extension", settings.Manifest))
		}
	}

	return problems
}

// RequireInput reports a configuration error when no input file is set.
func (c *ConvertSettings) RequireInput() error {
	if c.Input == "" {
		return errors.New(ErrMissingInput).
			Category(errors.CategoryConfiguration).
			Context("config_key", "convert.input").
			Build()
	}
	return nil
}

// RequireOutput reports a configuration error when no output directory is set.
func (c *ConvertSettings) RequireOutput() error {
	if c.Output == "" {
		return errors.New(ErrMissingOutput).
			Category(errors.CategoryConfiguration).
			Context("config_key", "convert.output").
			Build()
	}
	return nil
}
