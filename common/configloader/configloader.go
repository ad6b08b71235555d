package configloader

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load fills cfgPtr from registered defaults, an optional YAML file and ENV.
// Precedence: ENV > file > defaults.
// envPrefix is the ENV prefix, e.g. "STREAM_CONNECTOR".
func Load(path, envPrefix string, cfgPtr interface{}) error {
	v := viper.New()

	// 1) registered defaults
	for key, val := range getDefaults() {
		v.SetDefault(key, val)
	}

	// 2) environment override
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3) file, if provided
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("configloader: read config %q: %w", path, err)
		}
	}

	// 4) decode
	if err := decode(v.AllSettings(), cfgPtr); err != nil {
		return fmt.Errorf("configloader: decode failed: %w", err)
	}

	// 5) validate if possible
	if val, ok := cfgPtr.(interface{ Validate() error }); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("configloader: validation failed: %w", err)
		}
	}

	return nil
}
