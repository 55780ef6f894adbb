/*
Package config loads run settings from defaults, an optional YAML file and
GEM_* environment variables.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"continual-gem/gem"
)

type Config struct {
	GEM    gem.Config `mapstructure:"gem"`
	Train  Train      `mapstructure:"train"`
	Model  Model      `mapstructure:"model"`
	Data   Data       `mapstructure:"data"`
	Log    Log        `mapstructure:"log"`
	Input  Input      `mapstructure:"input"`
	Output Output     `mapstructure:"output"`
}

type Train struct {
	Epochs    int     `mapstructure:"epochs"`
	BatchSize int     `mapstructure:"batch_size"`
	LR        float64 `mapstructure:"lr"`
	Optimizer string  `mapstructure:"optimizer"`
	Momentum  float64 `mapstructure:"momentum"`
}

type Model struct {
	Hidden []int `mapstructure:"hidden"`
	Seed   int64 `mapstructure:"seed"`
}

type Data struct {
	TSV     bool `mapstructure:"tsv"`
	Header  bool `mapstructure:"header"`
	MaxRows int  `mapstructure:"max_rows"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// Input.Model is a saved model to start from instead of random weights.
type Input struct {
	Model string `mapstructure:"model"`
}

type Output struct {
	Model string `mapstructure:"model"`
}

// SetDefaults registers every key so env overrides and Unmarshal see them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("gem.patterns_per_experience", 256)
	v.SetDefault("gem.memory_strength", 0.5)
	v.SetDefault("train.epochs", 1)
	v.SetDefault("train.batch_size", 32)
	v.SetDefault("train.lr", 0.1)
	v.SetDefault("train.optimizer", "sgd")
	v.SetDefault("train.momentum", 0.0)
	v.SetDefault("model.hidden", []int{100, 100})
	v.SetDefault("model.seed", 42)
	v.SetDefault("data.tsv", false)
	v.SetDefault("data.header", false)
	v.SetDefault("data.max_rows", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("input.model", "")
	v.SetDefault("output.model", "")
}

// Load reads path (if non-empty) on top of the defaults into v.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("GEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.GEM.PatternsPerExperience <= 0:
		return fmt.Errorf("%w: gem.patterns_per_experience must be positive, got %d", gem.ErrInvalidConfig, c.GEM.PatternsPerExperience)
	case c.GEM.MemoryStrength < 0:
		return fmt.Errorf("%w: gem.memory_strength must be non-negative, got %v", gem.ErrInvalidConfig, c.GEM.MemoryStrength)
	case c.Train.Epochs <= 0:
		return fmt.Errorf("%w: train.epochs must be positive, got %d", gem.ErrInvalidConfig, c.Train.Epochs)
	case c.Train.BatchSize <= 0:
		return fmt.Errorf("%w: train.batch_size must be positive, got %d", gem.ErrInvalidConfig, c.Train.BatchSize)
	case c.Train.LR <= 0:
		return fmt.Errorf("%w: train.lr must be positive, got %v", gem.ErrInvalidConfig, c.Train.LR)
	}
	for _, h := range c.Model.Hidden {
		if h <= 0 {
			return fmt.Errorf("%w: model.hidden sizes must be positive, got %v", gem.ErrInvalidConfig, c.Model.Hidden)
		}
	}
	return nil
}
