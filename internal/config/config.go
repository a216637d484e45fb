// Package config loads tool configuration from file, environment and
// defaults. Precedence: explicit flags > BANKML_* env vars > config file
// > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global is the tool-wide configuration.
type Global struct {
	// ModelsDir is where trained models are stored by default.
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir"`
	// PlotsDir is where training loss curves are written.
	PlotsDir string `mapstructure:"plots_dir" yaml:"plots_dir"`
	// RulesFile optionally overrides the built-in validation rules.
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// Seed drives split and weight-initialisation determinism.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
	// AggressiveCleaningScore is the quality score below which training
	// uses aggressive cleaning.
	AggressiveCleaningScore float64 `mapstructure:"aggressive_cleaning_score" yaml:"aggressive_cleaning_score"`
}

// Load reads configuration. An empty cfgFile falls back to
// ~/.bankml/config.yaml when present.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("BANKML")
	v.AutomaticEnv()

	v.SetDefault("models_dir", "models")
	v.SetDefault("plots_dir", "plots")
	v.SetDefault("rules_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("seed", 42)
	v.SetDefault("aggressive_cleaning_score", 80.0)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".bankml"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// The config file is optional.
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Save writes the configuration to path, or to ~/.bankml/config.yaml when
// path is empty.
func Save(c *Global, path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".bankml")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
