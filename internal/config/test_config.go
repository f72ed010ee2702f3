package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	def := defaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:              "127.0.0.1:0",
			HandlerTimeout:    5 * time.Second,
			ReadHeaderTimeout: 1 * time.Second,
		},
		Feed: FeedConfig{
			HTTPTimeout:       5 * time.Second,
			UserAgent:         "feeds-test/1.0",
			PreviewLimit:      20,
			SnippetLength:     200,
			AllowPrivateHosts: true, // httptest servers listen on loopback
		},
		Categories: def.Categories,
		Auth: AuthConfig{
			Secret:     "test-secret",
			CookieName: def.Auth.CookieName,
			MaxAge:     def.Auth.MaxAge,
			UpdateAge:  def.Auth.UpdateAge,
			BcryptCost: MinBcryptCost,
		},
		Database: DatabaseConfig{
			Driver:  "memory",
			Path:    ":memory:",
			Timeout: 1 * time.Second,
		},
		Search: SearchConfig{Enabled: true},
		Log:    LogConfig{Level: "off"},
	}
}
