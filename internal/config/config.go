// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port      int `mapstructure:"port"`
	Downloads struct {
		Path             string `mapstructure:"path"`
		Concurrency      int    `mapstructure:"concurrency"`
		CleanupAfterDays int    `mapstructure:"cleanup_after_days"`
		UserAgent        string `mapstructure:"user_agent"`
	} `mapstructure:"downloads"`
	Sync struct {
		DevicePath string `mapstructure:"device_path"`
	} `mapstructure:"sync"`
	Storage struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"storage"`
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

// DefaultUserAgent is sent on every episode fetch unless overridden in
// config.yml. Some podcast CDNs serve an HTML error page to unknown agents.
func DefaultUserAgent() string { return defaultUserAgent }

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "PODKEEP_" prefix.
	// e.g., PODKEEP_DOWNLOADS_PATH will override the `downloads.path` key.
	viper.SetEnvPrefix("PODKEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("downloads.path", "./downloads")
	viper.SetDefault("downloads.concurrency", 3)
	viper.SetDefault("downloads.cleanup_after_days", 0)
	viper.SetDefault("downloads.user_agent", defaultUserAgent)
	viper.SetDefault("sync.device_path", "")
	viper.SetDefault("storage.path", "./podkeep.json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Concurrency outside 1..10 falls back to the nearest bound rather
	// than failing startup.
	if config.Downloads.Concurrency < 1 {
		config.Downloads.Concurrency = 1
	}
	if config.Downloads.Concurrency > 10 {
		config.Downloads.Concurrency = 10
	}

	return &config, nil
}
