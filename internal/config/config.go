package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/imgdiff/internal/utils"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Global configuration structure.
type Global struct {
	ThresholdsPath      string   `mapstructure:"thresholds_path" yaml:"thresholds_path"`
	HistoryPath         string   `mapstructure:"history_path" yaml:"history_path"`
	MatchColumn         string   `mapstructure:"match_column" yaml:"match_column"`
	SimilarityThreshold float64  `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	ConfidenceLevel     float64  `mapstructure:"confidence_level" yaml:"confidence_level"`
	BaseFields          []string `mapstructure:"base_fields" yaml:"base_fields"`
	DefaultFields       []string `mapstructure:"default_fields" yaml:"default_fields"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"thresholds_path", "history_path", "match_column", "similarity_threshold",
	"confidence_level", "base_fields", "default_fields", "log_level", "log_format",
}

// DefaultPath returns ~/.imgdiff/config.yaml.
func DefaultPath() (string, error) {
	dir, err := utils.AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.imgdiff/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("IMGDIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("thresholds_path", "")
	v.SetDefault("history_path", "")
	v.SetDefault("match_column", "Image_name")
	v.SetDefault("similarity_threshold", 0.8)
	v.SetDefault("confidence_level", 0.95)
	v.SetDefault("base_fields", []string{})
	v.SetDefault("default_fields", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := utils.AppDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.resolvePaths(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Global) resolvePaths() error {
	for _, p := range []*string{&c.ThresholdsPath, &c.HistoryPath} {
		if *p == "" {
			continue
		}
		expanded, err := utils.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// Validate checks the numeric ranges.
func (c *Global) Validate() error {
	var problems []string
	if !(c.SimilarityThreshold > 0 && c.SimilarityThreshold <= 1) {
		problems = append(problems, fmt.Sprintf("similarity_threshold must be in (0,1], got %v", c.SimilarityThreshold))
	}
	if !(c.ConfidenceLevel > 0 && c.ConfidenceLevel < 1) {
		problems = append(problems, fmt.Sprintf("confidence_level must be in (0,1), got %v", c.ConfidenceLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "auto", "json", "console", "text":
	default:
		problems = append(problems, fmt.Sprintf("log_format must be auto, json or console, got %q", c.LogFormat))
	}
	if strings.TrimSpace(c.MatchColumn) == "" {
		problems = append(problems, "match_column must not be empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Set assigns key from its string form. List values are comma separated.
func (c *Global) Set(key, val string) error {
	switch key {
	case "thresholds_path":
		c.ThresholdsPath = val
	case "history_path":
		c.HistoryPath = val
	case "match_column":
		c.MatchColumn = val
	case "similarity_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for similarity_threshold: %w", err)
		}
		c.SimilarityThreshold = f
	case "confidence_level":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for confidence_level: %w", err)
		}
		c.ConfidenceLevel = f
	case "base_fields":
		c.BaseFields = SplitList(val)
	case "default_fields":
		c.DefaultFields = SplitList(val)
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return c.Validate()
}

// Get returns the string form of key.
func (c *Global) Get(key string) (string, bool) {
	switch key {
	case "thresholds_path":
		return c.ThresholdsPath, true
	case "history_path":
		return c.HistoryPath, true
	case "match_column":
		return c.MatchColumn, true
	case "similarity_threshold":
		return strconv.FormatFloat(c.SimilarityThreshold, 'g', -1, 64), true
	case "confidence_level":
		return strconv.FormatFloat(c.ConfidenceLevel, 'g', -1, 64), true
	case "base_fields":
		return strings.Join(c.BaseFields, ","), true
	case "default_fields":
		return strings.Join(c.DefaultFields, ","), true
	case "log_level":
		return c.LogLevel, true
	case "log_format":
		return c.LogFormat, true
	}
	return "", false
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
