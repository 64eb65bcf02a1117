// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/quotes-crawler/internal/crawler"
)

// Storage drivers accepted in db.driver.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	DB       DBConfig       `mapstructure:"db"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
}

// SiteConfig describes the crawled site and the HTTP client used against it.
type SiteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	StartPage      int    `mapstructure:"start_page"`
	MaxPages       int    `mapstructure:"max_pages"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Driver                string `mapstructure:"driver"`
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	User                  string `mapstructure:"user"`
	Password              string `mapstructure:"password"`
	Name                  string `mapstructure:"name"`
	SSLMode               string `mapstructure:"sslmode"`
	EnsureSchema          bool   `mapstructure:"ensure_schema"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
}

// LoggingConfig controls the console and rotating file outputs.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// ScheduleConfig sets when the perpetual mode runs a crawl.
type ScheduleConfig struct {
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
}

// ServerConfig controls the ops HTTP server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	base, err := crawler.NormalizeBaseURL(cfg.Site.BaseURL)
	if err != nil {
		return Config{}, fmt.Errorf("site.base_url: %w", err)
	}
	cfg.Site.BaseURL = base

	return cfg, nil
}

// bindLegacyEnv keeps the unprefixed DB_* variables working alongside QUOTES_DB_*.
func bindLegacyEnv(v *viper.Viper) error {
	for _, name := range []string{"host", "port", "user", "password", "name"} {
		key := "db." + name
		env := "DB_" + strings.ToUpper(name)
		if err := v.BindEnv(key, "QUOTES_"+env, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "http://quotes.toscrape.com")
	v.SetDefault("site.user_agent", "quotes-crawler/1.0")
	v.SetDefault("site.timeout_seconds", 15)
	v.SetDefault("site.start_page", 1)
	v.SetDefault("site.max_pages", 0)
	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "root")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "quotes_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.ensure_schema", true)
	v.SetDefault("db.connect_timeout_seconds", 10)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "scraper.log")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("schedule.cron", "0 0 * * *")
	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("server.port", 9090)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if c.Site.TimeoutSeconds <= 0 {
		return fmt.Errorf("site.timeout_seconds must be > 0")
	}
	if c.Site.StartPage <= 0 {
		return fmt.Errorf("site.start_page must be > 0")
	}
	if c.Site.MaxPages < 0 {
		return fmt.Errorf("site.max_pages must be >= 0")
	}
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.Host == "" {
			return fmt.Errorf("db.host is required for the postgres driver")
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			return fmt.Errorf("db.port must be between 1 and 65535")
		}
		if c.DB.Name == "" {
			return fmt.Errorf("db.name is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("db.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.DB.Driver)
	}
	if c.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	return nil
}

// Timeout converts the site timeout into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Site.TimeoutSeconds) * time.Second
}

// ConnectTimeout converts the db connect timeout into a duration.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.DB.ConnectTimeoutSeconds) * time.Second
}

// Location resolves the schedule timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" || c.Schedule.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}
