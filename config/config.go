// Package config loads server configuration from an optional YAML file and
// LEAVE_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Port            int
	ReadTimeoutSec  int `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int `mapstructure:"idle_timeout_sec"`
}

type Data struct {
	// File is the JSON document holding users, requests and settings.
	File string
}

type Log struct {
	Level string
	JSON  bool
	// File enables a rotating log file in addition to stdout.
	File       string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// Admin is the account seeded when no user with Username exists.
type Admin struct {
	Username string
	Password string
}

// Auth configures login tokens. An empty JWTSecret turns authorization off.
type Auth struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	Issuer      string
	TokenTTLMin int `mapstructure:"token_ttl_min"`
}

// Backup controls periodic copies of the document. IntervalMin 0 disables it.
type Backup struct {
	Dir         string
	IntervalMin int `mapstructure:"interval_min"`
	Keep        int
}

type CORS struct {
	Origins []string
}

type Config struct {
	HTTP  HTTP
	Data  Data
	Log   Log
	Admin  Admin
	Auth   Auth
	Backup Backup
	CORS   CORS `mapstructure:"cors"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.read_timeout_sec", 15)
	v.SetDefault("http.write_timeout_sec", 15)
	v.SetDefault("http.idle_timeout_sec", 60)

	v.SetDefault("data.file", "data.json")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "Admin123")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "leave-tracker")
	v.SetDefault("auth.token_ttl_min", 480)

	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.interval_min", 60)
	v.SetDefault("backup.keep", 24)

	v.SetDefault("cors.origins", []string{"http://localhost:5173", "http://localhost:5000"})
}

// Load reads path (when non-empty) and overlays LEAVE_* environment
// variables, e.g. LEAVE_DATA_FILE or LEAVE_HTTP_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Data.File == "" {
		return nil, fmt.Errorf("data.file must not be empty")
	}
	return &c, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
