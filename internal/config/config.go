package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevSecret signs sessions when no secret is configured. Rejected in production.
const DevSecret = "feeds-insecure-dev-secret"

// MinBcryptCost is the lowest accepted password hashing cost.
const MinBcryptCost = 10

type Config struct {
	Server     ServerConfig   `mapstructure:"server"`
	Feed       FeedConfig     `mapstructure:"feed"`
	Sources    []SourceConfig `mapstructure:"sources"`
	Categories []string       `mapstructure:"categories"`
	Auth       AuthConfig     `mapstructure:"auth"`
	Database   DatabaseConfig `mapstructure:"database"`
	Search     SearchConfig   `mapstructure:"search"`
	Log        LogConfig      `mapstructure:"log"`
	SeedPath   string         `mapstructure:"seed_path"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	HandlerTimeout    time.Duration `mapstructure:"handler_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	Production        bool          `mapstructure:"production"`
}

type FeedConfig struct {
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	Offline           bool          `mapstructure:"offline"`
	SnapshotPath      string        `mapstructure:"snapshot_path"`
	PreviewLimit      int           `mapstructure:"preview_limit"`
	SnippetLength     int           `mapstructure:"snippet_length"`
	AllowPrivateHosts bool          `mapstructure:"allow_private_hosts"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// SourceConfig is one public RSS source contributing to the merged feed.
type SourceConfig struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Category string `mapstructure:"category"`
}

type AuthConfig struct {
	Secret     string        `mapstructure:"secret"`
	CookieName string        `mapstructure:"cookie_name"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	UpdateAge  time.Duration `mapstructure:"update_age"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type DatabaseConfig struct {
	Driver  string        `mapstructure:"driver"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Server: ServerConfig{
			Addr:              ":3000",
			HandlerTimeout:    30 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Feed: FeedConfig{
			HTTPTimeout:   10 * time.Second,
			UserAgent:     "feeds/1.0 (RSS aggregator; github.com/pders01/feeds)",
			PreviewLimit:  20,
			SnippetLength: 200,
		},
		Sources: []SourceConfig{
			{ID: "hn", Name: "Hacker News", URL: "https://hnrss.org/frontpage", Category: "Tech"},
			{ID: "bbc-world", Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Category: "World"},
			{ID: "nasa", Name: "NASA", URL: "https://www.nasa.gov/news-release/feed/", Category: "Science"},
		},
		Categories: []string{"Tech", "World", "Science"},
		Auth: AuthConfig{
			Secret:     DevSecret,
			CookieName: "feeds_session",
			MaxAge:     30 * 24 * time.Hour,
			UpdateAge:  24 * time.Hour,
			BcryptCost: MinBcryptCost,
		},
		Database: DatabaseConfig{
			Driver:  "memory",
			Path:    filepath.Join(homeDir, ".feeds.db"),
			Timeout: 1 * time.Second,
		},
		Search: SearchConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// setDefaults registers every leaf key so env overrides resolve and
// partially specified tables keep their remaining defaults.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.handler_timeout", cfg.Server.HandlerTimeout)
	v.SetDefault("server.read_header_timeout", cfg.Server.ReadHeaderTimeout)
	v.SetDefault("server.production", cfg.Server.Production)

	v.SetDefault("feed.http_timeout", cfg.Feed.HTTPTimeout)
	v.SetDefault("feed.user_agent", cfg.Feed.UserAgent)
	v.SetDefault("feed.offline", cfg.Feed.Offline)
	v.SetDefault("feed.snapshot_path", cfg.Feed.SnapshotPath)
	v.SetDefault("feed.preview_limit", cfg.Feed.PreviewLimit)
	v.SetDefault("feed.snippet_length", cfg.Feed.SnippetLength)
	v.SetDefault("feed.allow_private_hosts", cfg.Feed.AllowPrivateHosts)
	v.SetDefault("feed.cache_ttl", cfg.Feed.CacheTTL)

	v.SetDefault("sources", sourcesToMaps(cfg.Sources))
	v.SetDefault("categories", cfg.Categories)

	v.SetDefault("auth.secret", cfg.Auth.Secret)
	v.SetDefault("auth.cookie_name", cfg.Auth.CookieName)
	v.SetDefault("auth.max_age", cfg.Auth.MaxAge)
	v.SetDefault("auth.update_age", cfg.Auth.UpdateAge)
	v.SetDefault("auth.bcrypt_cost", cfg.Auth.BcryptCost)

	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.timeout", cfg.Database.Timeout)

	v.SetDefault("search.enabled", cfg.Search.Enabled)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)

	v.SetDefault("seed_path", cfg.SeedPath)
}

func sourcesToMaps(sources []SourceConfig) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(sources))
	for _, s := range sources {
		out = append(out, map[string]interface{}{
			"id":       s.ID,
			"name":     s.Name,
			"url":      s.URL,
			"category": s.Category,
		})
	}
	return out
}

// Load reads configuration from configPath (or the default search paths),
// a .env file in the working directory and FEEDS_* environment variables.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "feeds")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FEEDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// Validate rejects configurations that must not be served.
func (c *Config) Validate() error {
	if c.Server.Production && (c.Auth.Secret == "" || c.Auth.Secret == DevSecret) {
		return errors.New("auth.secret must be set in production")
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret must not be empty")
	}
	if c.Auth.BcryptCost < MinBcryptCost {
		return fmt.Errorf("auth.bcrypt_cost must be at least %d", MinBcryptCost)
	}
	if c.Auth.MaxAge <= 0 {
		return errors.New("auth.max_age must be positive")
	}
	switch c.Database.Driver {
	case "memory", "bolt":
	default:
		return fmt.Errorf("unknown database.driver %q (expected memory or bolt)", c.Database.Driver)
	}
	if c.Feed.Offline && c.Feed.SnapshotPath == "" && c.SeedPath == "" {
		return errors.New("feed.offline requires feed.snapshot_path or seed_path")
	}
	for i, s := range c.Sources {
		if s.URL == "" {
			return fmt.Errorf("sources[%d]: url is required", i)
		}
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Feed.SnapshotPath = expandPath(cfg.Feed.SnapshotPath)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.SeedPath = expandPath(cfg.SeedPath)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings for TOML readability
	v.Set("server", map[string]interface{}{
		"addr":                config.Server.Addr,
		"handler_timeout":     config.Server.HandlerTimeout.String(),
		"read_header_timeout": config.Server.ReadHeaderTimeout.String(),
		"production":          config.Server.Production,
	})
	v.Set("feed", map[string]interface{}{
		"http_timeout":        config.Feed.HTTPTimeout.String(),
		"user_agent":          config.Feed.UserAgent,
		"offline":             config.Feed.Offline,
		"snapshot_path":       config.Feed.SnapshotPath,
		"preview_limit":       config.Feed.PreviewLimit,
		"snippet_length":      config.Feed.SnippetLength,
		"allow_private_hosts": config.Feed.AllowPrivateHosts,
		"cache_ttl":           config.Feed.CacheTTL.String(),
	})
	v.Set("sources", sourcesToMaps(config.Sources))
	v.Set("categories", config.Categories)
	v.Set("auth", map[string]interface{}{
		"secret":      config.Auth.Secret,
		"cookie_name": config.Auth.CookieName,
		"max_age":     config.Auth.MaxAge.String(),
		"update_age":  config.Auth.UpdateAge.String(),
		"bcrypt_cost": config.Auth.BcryptCost,
	})
	v.Set("database", map[string]interface{}{
		"driver":  config.Database.Driver,
		"path":    config.Database.Path,
		"timeout": config.Database.Timeout.String(),
	})
	v.Set("search", map[string]interface{}{
		"enabled": config.Search.Enabled,
	})
	v.Set("log", map[string]interface{}{
		"level": config.Log.Level,
		"file":  config.Log.File,
	})
	v.Set("seed_path", config.SeedPath)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
