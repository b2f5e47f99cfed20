package main

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/twpayne/go-dem"
)

const defaultTimeout = 60 * time.Second

// Config holds the command configuration.
type Config struct {
	APIKey    string
	BaseURL   string
	DEMType   string
	PresetDir string
	Addr      string
	Timeout   time.Duration
	Workers   int
}

// LoadConfig loads the configuration from command flags and environment
// variables. Flags take precedence over environment variables.
func LoadConfig(cmd *cobra.Command) Config {
	return Config{
		APIKey:    getConfigString(cmd, "api-key", "OPENTOPOGRAPHY_API_KEY", ""),
		BaseURL:   getConfigString(cmd, "base-url", "DEMNORM_BASE_URL", dem.DefaultOpenTopographyBaseURL),
		DEMType:   getConfigString(cmd, "dem-type", "DEMNORM_DEM_TYPE", dem.DefaultDEMType),
		PresetDir: getConfigString(cmd, "preset-dir", "DEMNORM_PRESET_DIR", "geoData"),
		Addr:      getConfigString(cmd, "addr", "DEMNORM_ADDR", ":8080"),
		Timeout:   getConfigDuration(cmd, "timeout", "DEMNORM_TIMEOUT", defaultTimeout),
		Workers:   getConfigInt(cmd, "workers", "DEMNORM_WORKERS", 1),
	}
}

// NewClient returns a new OpenTopographyClient.
func (c *Config) NewClient() (*dem.OpenTopographyClient, error) {
	return dem.NewOpenTopographyClient(c.APIKey,
		dem.WithBaseURL(c.BaseURL),
		dem.WithDEMType(c.DEMType),
	)
}

// NewPipeline returns a new Pipeline.
func (c *Config) NewPipeline() *dem.Pipeline {
	return dem.NewPipeline(dem.WithWorkers(c.Workers))
}

// getConfigString gets a string value from flag, then env, then default.
func getConfigString(cmd *cobra.Command, flagName, envName, defaultValue string) string {
	if flag := cmd.Flags().Lookup(flagName); flag != nil && flag.Changed {
		return flag.Value.String()
	}
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return defaultValue
}

// getConfigInt gets an int value from flag, then env, then default.
func getConfigInt(cmd *cobra.Command, flagName, envName string, defaultValue int) int {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetInt(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// getConfigDuration gets a duration value from flag, then env, then default.
func getConfigDuration(cmd *cobra.Command, flagName, envName string, defaultValue time.Duration) time.Duration {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetDuration(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
