// Package config loads application configuration from defaults, a
// finvault.yaml file, FINVAULT_* environment variables and command flags,
// in ascending order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	DataDir  string        `mapstructure:"data_dir"`
	DBFile   string        `mapstructure:"db_file"`
	AutoLock time.Duration `mapstructure:"auto_lock"`
	Log      LogConfig     `mapstructure:"log"`
	KDF      KDFConfig     `mapstructure:"kdf"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// KDFConfig overrides the key-derivation cost parameters. Zero values fall
// back to the built-in defaults; lowering them below the defaults is only
// sensible in tests.
type KDFConfig struct {
	Time      uint32 `mapstructure:"time"`
	MemoryKiB uint32 `mapstructure:"memory_kib"`
	Threads   uint8  `mapstructure:"threads"`
}

// DSN is the path of the vault database file.
func (c *Config) DSN() string {
	return filepath.Join(c.DataDir, c.DBFile)
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "finvault")
	}
	return "."
}

func defaults() map[string]any {
	return map[string]any{
		"data_dir":   defaultDataDir(),
		"db_file":    "finvault.db",
		"auto_lock":  5 * time.Minute,
		"log.level":  "info",
		"log.format": "console",
	}
}

// Load resolves the configuration for cmd. An explicit path wins over the
// search locations (user config dir, then the current directory); a missing
// config file is not an error.
func Load(cmd *cobra.Command, explicitPath string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("finvault")
	v.SetConfigType("yaml")
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "finvault"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("finvault")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &c, nil
}
