package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load reads configPath (a loadexec.yaml file) merged with
// LOADEXEC_-prefixed environment variable overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("LOADEXEC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 4)
	v.SetDefault("raise_on_failed_jobs", false)
	v.SetDefault("max_retries", 5)
	v.SetDefault("poll_interval", 1*time.Second)
	v.SetDefault("lock_timeout", 10*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("archive_retention", 7*24*time.Hour)
}
