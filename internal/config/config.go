package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zzenonn/raiden/internal/domain"
	raidErrors "github.com/zzenonn/raiden/internal/errors"
)

// EnvPrefix is prepended to configuration keys looked up in the environment
const EnvPrefix = "RAIDEN"

// Config holds the application configuration
type Config struct {
	LogLevel string `yaml:"log_level"`
	// ChunkSize must match between the split and merge of a disk set. It is
	// not recorded on the disks.
	ChunkSize int  `yaml:"chunk_size"`
	Quiet     bool `yaml:"quiet"`
}

// flagKeys maps persistent flag names to configuration keys
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"chunk-size": "chunk_size",
	"quiet":      "quiet",
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, rootCmd *cobra.Command) (*Config, error) {
	v := viper.New()
	if err := setupViper(v, configPath, rootCmd); err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:  v.GetString("log_level"),
		ChunkSize: v.GetInt("chunk_size"),
		Quiet:     v.GetBool("quiet"),
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", raidErrors.ErrInvalidChunkSize, cfg.ChunkSize)
	}

	return cfg, nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(v *viper.Viper, configPath string, rootCmd *cobra.Command) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if rootCmd != nil {
		for flagName, key := range flagKeys {
			flag := rootCmd.PersistentFlags().Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("chunk_size", domain.DefaultChunkSize)
	v.SetDefault("quiet", false)
}
