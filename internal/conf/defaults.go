// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/tphakala/coco2yolo/internal/yolo"
)

// Sets default values for the configuration. Every key needs a default so
// that environment overrides are picked up by Unmarshal.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.timezone", "Local")
	v.SetDefault("log.modules", map[string]string{})

	v.SetDefault("convert.input", "")
	v.SetDefault("convert.output", "")
	v.SetDefault("convert.names", "")
	v.SetDefault("convert.manifest", "")
	v.SetDefault("convert.dataset", "")
	v.SetDefault("convert.train", yolo.DefaultTrainImages)
	v.SetDefault("convert.val", yolo.DefaultValImages)
	v.SetDefault("convert.metricsfile", "")
	v.SetDefault("convert.workers", 0)
	v.SetDefault("convert.skipinvalid", false)
}
