package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lherron/boardq/internal/engine"
	"github.com/lherron/boardq/internal/pager"
	"github.com/lherron/boardq/internal/remote"
)

// Config represents the application configuration
type Config struct {
	DBPath         string       `yaml:"db_path"`
	LogLevel       string       `yaml:"log_level"`
	LogFormat      string       `yaml:"log_format"`
	Remote         RemoteConfig `yaml:"remote"`
	Sync           SyncConfig   `yaml:"sync"`
	Pager          PagerConfig  `yaml:"pager"`
	Engine         EngineConfig `yaml:"engine"`
	DefaultBuckets []string     `yaml:"default_buckets"`
}

// RemoteConfig selects the sink board writes are mirrored to.
type RemoteConfig struct {
	Kind        string        `yaml:"kind"`
	DatabaseURL string        `yaml:"database_url"`
	RedisURL    string        `yaml:"redis_url"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SyncConfig tunes the background writer.
type SyncConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// PagerConfig holds the auto-paging thresholds.
type PagerConfig struct {
	EdgeFraction     float64       `yaml:"edge_fraction"`
	ArmDelay         time.Duration `yaml:"arm_delay"`
	Cooldown         time.Duration `yaml:"cooldown"`
	NarrowBreakpoint float64       `yaml:"narrow_breakpoint"`
}

// EngineConfig holds drag engine settings.
type EngineConfig struct {
	CancelPolicy string `yaml:"cancel_policy"`
}

// Default returns a configuration with every default filled in except
// DBPath, which depends on the working directory.
func Default() *Config {
	p := pager.DefaultConfig()
	return &Config{
		LogLevel:  "warn",
		LogFormat: "console",
		Remote:    RemoteConfig{Kind: remote.KindSQLite},
		Sync:      SyncConfig{WriteTimeout: 5 * time.Second},
		Pager: PagerConfig{
			EdgeFraction:     p.EdgeFraction,
			ArmDelay:         p.ArmDelay,
			Cooldown:         p.Cooldown,
			NarrowBreakpoint: p.NarrowBreakpoint,
		},
		Engine: EngineConfig{CancelPolicy: string(engine.CancelKeep)},
	}
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/boardq/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := Default()

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	if err := loadYAMLConfig(cfg); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		// Check for project-local database first
		if _, err := os.Stat(filepath.Join(".boardq", "boardq.db")); err == nil {
			cfg.DBPath = filepath.Join(".boardq", "boardq.db")
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "boardq", "boardq.db")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAMLConfig loads configuration from ~/.config/boardq/config.yaml.
// A missing file is not an error.
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	configPath := filepath.Join(homeDir, ".config", "boardq", "config.yaml")
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", configPath, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.DBPath, getEnvOrFile("BOARDQ_DB_PATH", "BOARDQ_DB_PATH_FILE"))
	setString(&cfg.LogLevel, os.Getenv("BOARDQ_LOG_LEVEL"))
	setString(&cfg.LogFormat, os.Getenv("BOARDQ_LOG_FORMAT"))

	setString(&cfg.Remote.Kind, os.Getenv("BOARDQ_REMOTE_KIND"))
	setString(&cfg.Remote.DatabaseURL, getEnvOrFile("BOARDQ_REMOTE_DATABASE_URL", "BOARDQ_REMOTE_DATABASE_URL_FILE"))
	setString(&cfg.Remote.RedisURL, getEnvOrFile("BOARDQ_REMOTE_REDIS_URL", "BOARDQ_REMOTE_REDIS_URL_FILE"))
	setString(&cfg.Remote.BaseURL, os.Getenv("BOARDQ_REMOTE_BASE_URL"))
	setString(&cfg.Remote.APIKey, getEnvOrFile("BOARDQ_REMOTE_API_KEY", "BOARDQ_REMOTE_API_KEY_FILE"))

	setString(&cfg.Engine.CancelPolicy, os.Getenv("BOARDQ_ENGINE_CANCEL_POLICY"))

	if v := os.Getenv("BOARDQ_DEFAULT_BUCKETS"); v != "" {
		cfg.DefaultBuckets = nil
		for _, label := range strings.Split(v, ",") {
			if label = strings.TrimSpace(label); label != "" {
				cfg.DefaultBuckets = append(cfg.DefaultBuckets, label)
			}
		}
	}

	durations := map[string]*time.Duration{
		"BOARDQ_REMOTE_TIMEOUT":     &cfg.Remote.Timeout,
		"BOARDQ_SYNC_WRITE_TIMEOUT": &cfg.Sync.WriteTimeout,
		"BOARDQ_PAGER_ARM_DELAY":    &cfg.Pager.ArmDelay,
		"BOARDQ_PAGER_COOLDOWN":     &cfg.Pager.Cooldown,
	}
	for name, dst := range durations {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}

	floats := map[string]*float64{
		"BOARDQ_PAGER_EDGE_FRACTION":     &cfg.Pager.EdgeFraction,
		"BOARDQ_PAGER_NARROW_BREAKPOINT": &cfg.Pager.NarrowBreakpoint,
	}
	for name, dst := range floats {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = f
	}

	if v := os.Getenv("BOARDQ_SYNC_MAX_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOARDQ_SYNC_MAX_CONCURRENCY: %w", err)
		}
		cfg.Sync.MaxConcurrency = n
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks the values that would otherwise fail deep inside a
// component.
func (c *Config) Validate() error {
	switch c.Remote.Kind {
	case "", remote.KindSQLite, remote.KindPostgres, remote.KindHTTP, remote.KindRedis:
	default:
		return fmt.Errorf("remote.kind: unknown kind %q", c.Remote.Kind)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format: must be console or json, got %q", c.LogFormat)
	}
	if c.Sync.MaxConcurrency < 0 {
		return fmt.Errorf("sync.max_concurrency: must not be negative")
	}
	if _, err := engine.ParseCancelPolicy(c.Engine.CancelPolicy); err != nil {
		return fmt.Errorf("engine.cancel_policy: %w", err)
	}
	if err := c.PagerSettings().Validate(); err != nil {
		return fmt.Errorf("pager: %w", err)
	}
	return nil
}

// PagerSettings converts the pager section for pager.New.
func (c *Config) PagerSettings() pager.Config {
	return pager.Config{
		EdgeFraction:     c.Pager.EdgeFraction,
		ArmDelay:         c.Pager.ArmDelay,
		Cooldown:         c.Pager.Cooldown,
		NarrowBreakpoint: c.Pager.NarrowBreakpoint,
	}
}

// RemoteSettings converts the remote section for remote.Open.
func (c *Config) RemoteSettings() remote.Config {
	return remote.Config{
		Kind:        c.Remote.Kind,
		DatabaseURL: c.Remote.DatabaseURL,
		RedisURL:    c.Remote.RedisURL,
		BaseURL:     c.Remote.BaseURL,
		APIKey:      c.Remote.APIKey,
		Timeout:     c.Remote.Timeout,
	}
}

// CancelPolicy returns the parsed engine cancel policy.
func (c *Config) CancelPolicy() engine.CancelPolicy {
	p, err := engine.ParseCancelPolicy(c.Engine.CancelPolicy)
	if err != nil {
		return engine.CancelKeep
	}
	return p
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
