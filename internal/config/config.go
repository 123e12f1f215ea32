package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"gitgutter/internal/differ"
	"gitgutter/internal/intern"
	"gitgutter/internal/linediff"
)

const (
	configDirName  = "gitgutter"
	configFileName = "config.json"
	storeFileName  = "pins.db"
	logFileName    = "gitgutter.log"
)

type AppConfig struct {
	DebounceMS   int       `json:"debounce_ms" yaml:"debounce_ms" validate:"min=0,max=10000"`
	Algorithm    string    `json:"algorithm" yaml:"algorithm" validate:"algorithm"`
	MaxLines     int       `json:"max_lines" yaml:"max_lines" validate:"min=0,max=65535"`
	AvgLineBytes int       `json:"avg_line_bytes" yaml:"avg_line_bytes" validate:"min=0"`
	Providers    []string  `json:"providers" yaml:"providers" validate:"min=1,dive,provider"`
	StorePath    string    `json:"store_path" yaml:"store_path"`
	Theme        string    `json:"theme" yaml:"theme"`
	Log          LogConfig `json:"log" yaml:"log"`
}

type LogConfig struct {
	File       string `json:"file" yaml:"file"`
	Level      string `json:"level" yaml:"level" validate:"loglevel"`
	Format     string `json:"format" yaml:"format" validate:"omitempty,oneof=console json"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" validate:"min=0"`
}

// Default returns the configuration used when no file exists. Paths are
// filled in relative to the user's state directory.
func Default() AppConfig {
	cfg := AppConfig{
		DebounceMS: int(differ.DefaultDebounce / time.Millisecond),
		Algorithm:  linediff.Myers.String(),
		Providers:  []string{"pinned", "git"},
		Theme:      "monokai",
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
	if dir, err := stateHome(); err == nil {
		cfg.StorePath = filepath.Join(dir, configDirName, storeFileName)
		cfg.Log.File = filepath.Join(dir, configDirName, logFileName)
	}
	return cfg
}

func Load() (AppConfig, string, error) {
	path, err := DefaultPath()
	if err != nil {
		return AppConfig{}, "", err
	}
	cfg, err := LoadFromPath(path)
	return cfg, path, err
}

// LoadFromPath reads a JSON or YAML (by extension) config file. A missing or
// empty file yields the defaults.
func LoadFromPath(path string) (AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return AppConfig{}, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.Algorithm = strings.ToLower(strings.TrimSpace(c.Algorithm))
	c.Theme = strings.TrimSpace(c.Theme)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	for i, p := range c.Providers {
		c.Providers[i] = strings.ToLower(strings.TrimSpace(p))
	}
}

// Validate checks field ranges and the enumerated values.
func Validate(cfg AppConfig) error {
	validate := validator.New()

	_ = validate.RegisterValidation("algorithm", func(fl validator.FieldLevel) bool {
		_, err := linediff.ParseAlgorithm(fl.Field().String())
		return err == nil
	})

	_ = validate.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "git", "pinned":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		if fl.Field().String() == "" {
			return true
		}
		_, err := zerolog.ParseLevel(fl.Field().String())
		return err == nil
	})

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Limits returns the interner budget. Zero fields fall back to the defaults.
func (c AppConfig) Limits() intern.Limits {
	if c.MaxLines == 0 && c.AvgLineBytes == 0 {
		return intern.DefaultLimits()
	}
	maxLines := c.MaxLines
	if maxLines == 0 {
		maxLines = intern.MaxDiffLines
	}
	avg := c.AvgLineBytes
	if avg == 0 {
		avg = intern.MaxDiffBytes / intern.MaxDiffLines
	}
	return intern.LimitsFor(maxLines, avg)
}

// DifferOptions converts the config into options for differ.New.
func (c AppConfig) DifferOptions(logger zerolog.Logger) []differ.Option {
	alg, err := linediff.ParseAlgorithm(c.Algorithm)
	if err != nil {
		alg = linediff.Myers
	}
	return []differ.Option{
		differ.WithDebounce(time.Duration(c.DebounceMS) * time.Millisecond),
		differ.WithAlgorithm(alg),
		differ.WithLimits(c.Limits()),
		differ.WithLogger(logger),
	}
}

func DefaultPath() (string, error) {
	home, err := configHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

func configHome() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return xdg, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

func stateHome() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state"), nil
}
