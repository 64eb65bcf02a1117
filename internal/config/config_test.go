package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.BaseURL != "http://quotes.toscrape.com" {
		t.Fatalf("expected default base url, got %q", cfg.Site.BaseURL)
	}
	if cfg.Site.StartPage != 1 || cfg.Site.MaxPages != 0 {
		t.Fatalf("expected unbounded crawl from page 1, got %+v", cfg.Site)
	}
	if cfg.DB.Driver != DriverPostgres || cfg.DB.Host != "localhost" || cfg.DB.Port != 5432 {
		t.Fatalf("unexpected db defaults: %+v", cfg.DB)
	}
	if cfg.DB.User != "root" || cfg.DB.Password != "" || cfg.DB.Name != "quotes_db" {
		t.Fatalf("unexpected db credentials: %+v", cfg.DB)
	}
	if !cfg.DB.EnsureSchema {
		t.Fatal("expected ensure_schema to default to true")
	}
	if cfg.Logging.File != "scraper.log" {
		t.Fatalf("expected scraper.log, got %q", cfg.Logging.File)
	}
	if cfg.Schedule.Cron != "0 0 * * *" {
		t.Fatalf("expected midnight schedule, got %q", cfg.Schedule.Cron)
	}
	if got := cfg.Timeout(); got != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
site:
  base_url: https://Quotes.Example.com/
  user_agent: test-agent
  timeout_seconds: 30
  max_pages: 3
db:
  driver: memory
  ensure_schema: false
logging:
  development: true
  level: debug
  file: ""
schedule:
  cron: "30 6 * * *"
  timezone: UTC
server:
  port: 0
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.BaseURL != "https://quotes.example.com" {
		t.Fatalf("expected normalized base url, got %q", cfg.Site.BaseURL)
	}
	if cfg.Site.UserAgent != "test-agent" || cfg.Site.MaxPages != 3 {
		t.Fatalf("expected site overrides to apply: %+v", cfg.Site)
	}
	if cfg.DB.Driver != DriverMemory || cfg.DB.EnsureSchema {
		t.Fatalf("expected db overrides to apply: %+v", cfg.DB)
	}
	if !cfg.Logging.Development || cfg.Logging.File != "" {
		t.Fatalf("expected logging overrides to apply: %+v", cfg.Logging)
	}
	if cfg.Server.Port != 0 {
		t.Fatalf("expected server disabled, got port %d", cfg.Server.Port)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC location, got %v (%v)", loc, err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "scraper")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "quotes")
	t.Setenv("QUOTES_SITE_MAX_PAGES", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DB.Host != "db.internal" || cfg.DB.Port != 6543 {
		t.Fatalf("expected DB_HOST/DB_PORT to apply: %+v", cfg.DB)
	}
	if cfg.DB.User != "scraper" || cfg.DB.Password != "secret" || cfg.DB.Name != "quotes" {
		t.Fatalf("expected DB credentials from env: %+v", cfg.DB)
	}
	if cfg.Site.MaxPages != 2 {
		t.Fatalf("expected QUOTES_SITE_MAX_PAGES to apply, got %d", cfg.Site.MaxPages)
	}
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("DB_HOST", "legacy")
	t.Setenv("QUOTES_DB_HOST", "prefixed")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DB.Host != "prefixed" {
		t.Fatalf("expected prefixed host, got %q", cfg.DB.Host)
	}
}

func TestLoadRejectsBadBaseURL(t *testing.T) {
	t.Setenv("QUOTES_SITE_BASE_URL", "ftp://quotes.toscrape.com")

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "site.base_url") {
		t.Fatalf("expected base url error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Site:     SiteConfig{BaseURL: "http://quotes.toscrape.com", TimeoutSeconds: 10, StartPage: 1},
		DB:       DBConfig{Driver: DriverPostgres, Host: "localhost", Port: 5432, Name: "quotes_db"},
		Schedule: ScheduleConfig{Cron: "0 0 * * *"},
		Server:   ServerConfig{Port: 9090},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing base url", mutate: func(c *Config) { c.Site.BaseURL = "" }, want: "site.base_url"},
		{name: "invalid timeout", mutate: func(c *Config) { c.Site.TimeoutSeconds = 0 }, want: "site.timeout_seconds"},
		{name: "invalid start page", mutate: func(c *Config) { c.Site.StartPage = 0 }, want: "site.start_page"},
		{name: "negative max pages", mutate: func(c *Config) { c.Site.MaxPages = -1 }, want: "site.max_pages"},
		{name: "unknown driver", mutate: func(c *Config) { c.DB.Driver = "mysql" }, want: "db.driver"},
		{name: "missing host", mutate: func(c *Config) { c.DB.Host = "" }, want: "db.host"},
		{name: "invalid db port", mutate: func(c *Config) { c.DB.Port = 0 }, want: "db.port"},
		{name: "missing db name", mutate: func(c *Config) { c.DB.Name = "" }, want: "db.name"},
		{name: "missing cron", mutate: func(c *Config) { c.Schedule.Cron = "" }, want: "schedule.cron"},
		{name: "unknown timezone", mutate: func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, want: "schedule.timezone"},
		{name: "invalid server port", mutate: func(c *Config) { c.Server.Port = -1 }, want: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestMemoryDriverSkipsDatabaseChecks(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Site:     SiteConfig{BaseURL: "http://q", TimeoutSeconds: 1, StartPage: 1},
		DB:       DBConfig{Driver: DriverMemory},
		Schedule: ScheduleConfig{Cron: "@daily"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected memory driver config to be valid: %v", err)
	}
}
