// config.go: settings struct and loading of coco2yolo configuration
package conf

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/coco2yolo/internal/errors"
	"github.com/tphakala/coco2yolo/internal/logger"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. COCO2YOLO_CONVERT_WORKERS
	EnvPrefix = "COCO2YOLO"

	configName = "coco2yolo"
	configType = "yaml"
)

// LogSettings contains logging settings.
type LogSettings struct {
	Level    string            // console log level: trace, debug, info, warn or error
	File     string            // optional JSON log file, empty disables file logging
	Timezone string            // timezone for log timestamps, "Local" by default
	Modules  map[string]string // per-module levels, e.g. converter: debug
}

// ConvertSettings contains settings for a conversion run.
type ConvertSettings struct {
	Input       string // COCO annotation JSON file
	Output      string // label output directory
	Names       string // class names file, empty means <output>/coco.names
	Manifest    string // optional Ultralytics data.yaml path
	Dataset     string // dataset root written as data.yaml path, defaults to the parent of output
	Train       string // training images, relative to the dataset root
	Val         string // validation images, relative to the dataset root
	MetricsFile string // optional Prometheus textfile, must end in .prom
	Workers     int    // concurrent label writes, 0 means number of CPUs
	SkipInvalid bool   // skip and warn on annotations that cannot be converted
}

// Settings is the root of the configuration tree.
type Settings struct {
	Debug   bool            // true to force debug logging
	Log     LogSettings     // logging settings
	Convert ConvertSettings // conversion settings
}

// New returns a viper instance with defaults and environment overrides set up.
func New() *viper.Viper {
	v := viper.New()
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file, unmarshals the merged configuration
// and validates it. An empty configFile searches the default locations and
// tolerates a missing file; an explicit path must exist.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := readConfig(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

func readConfig(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		for _, path := range defaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if configFile == "" && errors.As(err, &notFound) {
		return nil
	}

	return errors.New(err).
		Category(errors.CategoryConfiguration).
		Context("operation", "read-config").
		Context("config_file", configFile).
		Build()
}

// BindFlags binds command line flags to configuration keys so that flags set
// on the command line take precedence over the config file and environment.
// bindings maps configuration key to flag name.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			return errors.Newf("flag %q not defined", name).
				Category(errors.CategoryConfiguration).
				Context("config_key", key).
				Build()
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.New(err).
				Category(errors.CategoryConfiguration).
				Context("config_key", key).
				Build()
		}
	}
	return nil
}

// LoggingConfig converts the log settings into a logger configuration.
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Log.Level
	if s.Debug {
		level = string(logger.LogLevelDebug)
	}

	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Log.Timezone,
		ModuleLevels: s.Log.Modules,
		Console: &logger.ConsoleOutput{
			Enabled: true,
			Level:   level,
		},
	}
	if s.Log.File != "" {
		cfg.FileOutput = &logger.FileOutput{
			Enabled: true,
			Path:    s.Log.File,
			Level:   level,
		}
	}
	return cfg
}
