package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = ".codementor.yaml"

type Config struct {
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"`
	AutoSuggest bool     `yaml:"auto_suggest"`
	Addr        string   `yaml:"addr"`

	// AllowedOrigins are browser origins the panel bridge accepts besides
	// loopback ones (e.g. "https://panel.example.com").
	AllowedOrigins []string `yaml:"allowed_origins"`

	Log        LogConfig        `yaml:"log"`
	Scan       ScanConfig       `yaml:"scan"`
	Context    ContextConfig    `yaml:"context"`
	Completion CompletionConfig `yaml:"completion"`

	// Source is the YAML file that was applied, if any.
	Source string `yaml:"-"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type ScanConfig struct {
	Extensions       []string `yaml:"extensions"`
	IgnoreNames      []string `yaml:"ignore"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
	MaxFileSize      int64    `yaml:"max_file_size"`
	Concurrency      int      `yaml:"concurrency"`
}

type ContextConfig struct {
	TruncateAbove int `yaml:"truncate_above"`
	HeadTail      int `yaml:"head_tail"`
	PreviewChars  int `yaml:"preview_chars"`
	Memo          int `yaml:"memo"`
}

type CompletionConfig struct {
	// MinInterval spaces completion requests; 0 disables rate limiting.
	MinInterval time.Duration `yaml:"min_interval"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	CacheSize   int           `yaml:"cache_size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Model:       "gemini-3-flash-preview",
		AutoSuggest: true,
		Addr:        "127.0.0.1:8787",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Scan: ScanConfig{
			MaxFileSize: 100000,
			Concurrency: 8,
		},
		Context: ContextConfig{
			TruncateAbove: 100,
			HeadTail:      50,
			PreviewChars:  500,
			Memo:          8,
		},
		Completion: CompletionConfig{
			MinInterval: 2 * time.Second,
			CacheTTL:    time.Hour,
			CacheSize:   100,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file, then the
// environment (including a .env file in the working directory). An empty
// file means CODEMENTOR_CONFIG or DefaultFile; a missing DefaultFile is not
// an error.
func Load(file string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := true
	if file == "" {
		file = strings.TrimSpace(os.Getenv("CODEMENTOR_CONFIG"))
	}
	if file == "" {
		file, explicit = DefaultFile, false
	}
	if err := cfg.applyFile(file, explicit); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFile(path string, required bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func (c *Config) applyEnv() error {
	c.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), c.APIKey)
	c.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("CODEMENTOR_MODEL")), c.Model)
	c.Addr = firstNonEmpty(strings.TrimSpace(os.Getenv("CODEMENTOR_ADDR")), c.Addr)
	if raw := strings.TrimSpace(os.Getenv("CODEMENTOR_ALLOWED_ORIGINS")); raw != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	c.Log.File = firstNonEmpty(strings.TrimSpace(os.Getenv("CODEMENTOR_LOG_FILE")), c.Log.File)
	c.Log.Level = firstNonEmpty(strings.TrimSpace(os.Getenv("CODEMENTOR_LOG_LEVEL")), c.Log.Level)

	if raw := strings.TrimSpace(os.Getenv("CODEMENTOR_TEMPERATURE")); raw != "" {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return fmt.Errorf("CODEMENTOR_TEMPERATURE: %w", err)
		}
		t := float32(v)
		c.Temperature = &t
	}
	if raw := strings.TrimSpace(os.Getenv("CODEMENTOR_AUTO_SUGGEST")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("CODEMENTOR_AUTO_SUGGEST: %w", err)
		}
		c.AutoSuggest = v
	}
	if raw := strings.TrimSpace(os.Getenv("CODEMENTOR_MIN_INTERVAL")); raw != "" {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("CODEMENTOR_MIN_INTERVAL: %w", err)
		}
		c.Completion.MinInterval = v
	}
	return nil
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("model must not be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", *c.Temperature)
	}
	if c.Scan.MaxFileSize < 0 {
		return fmt.Errorf("scan.max_file_size must not be negative")
	}
	if c.Context.HeadTail*2 > c.Context.TruncateAbove && c.Context.TruncateAbove > 0 {
		return fmt.Errorf("context.head_tail %d too large for truncate_above %d", c.Context.HeadTail, c.Context.TruncateAbove)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
