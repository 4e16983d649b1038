package conf

import (
	"io"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/coco2yolo/internal/errors"
	"github.com/tphakala/coco2yolo/internal/logger"
)

// Context carries the configuration and logger shared by CLI commands.
// Settings and Logger are set by Initialize.
type Context struct {
	Viper      *viper.Viper
	ConfigFile string    // explicit config file, empty searches default paths
	Console    io.Writer // console log destination, stderr when nil

	Settings *Settings
	Logger   *logger.CentralLogger

	bindings map[string]map[string]string
}

// NewContext creates a Context with a fresh viper instance
func NewContext() *Context {
	return &Context{
		Viper:    New(),
		bindings: make(map[string]map[string]string),
	}
}

// RegisterFlags records flag bindings for a command. They are applied by
// Initialize when that command runs, so commands may bind different flags to
// the same configuration key.
func (c *Context) RegisterFlags(command string, bindings map[string]string) {
	c.bindings[command] = bindings
}

// Initialize binds the running command's flags, loads settings and starts
// the logger.
func (c *Context) Initialize(command string, flags *pflag.FlagSet) error {
	if bindings, ok := c.bindings[command]; ok {
		if err := BindFlags(c.Viper, flags, bindings); err != nil {
			return err
		}
	}

	settings, err := Load(c.Viper, c.ConfigFile)
	if err != nil {
		return err
	}

	var opts []logger.CentralLoggerOption
	if c.Console != nil {
		opts = append(opts, logger.WithConsoleWriter(c.Console))
	}
	central, err := logger.NewCentralLogger(settings.LoggingConfig(), opts...)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "init-logger").
			Build()
	}

	c.Settings = settings
	c.Logger = central
	return nil
}

// Close flushes and closes the logger
func (c *Context) Close() error {
	if c.Logger == nil {
		return nil
	}
	return c.Logger.Close()
}
