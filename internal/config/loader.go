package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from a YAML file on top of defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	readErr := v.ReadInConfig()
	if readErr != nil {
		return cfg, fmt.Errorf("read config: %w", readErr)
	}

	unmarshalErr := v.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	return cfg, nil
}
