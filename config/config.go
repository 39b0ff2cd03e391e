package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yeremiapane/cleanshift/utils"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	GinMode        string   `mapstructure:"gin_mode"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
	AllowedOrigin  string   `mapstructure:"allowed_origin"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// MonitorConfig drives the acknowledgement sweep.
type MonitorConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	AlertTimeout time.Duration `mapstructure:"alert_timeout"`
	Timezone     string        `mapstructure:"timezone"`
}

// Location resolves Timezone; shift start times are wall-clock times in it.
func (m MonitorConfig) Location() (*time.Location, error) {
	if m.Timezone == "" || m.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(m.Timezone)
}

type NotifyConfig struct {
	NATSURL        string        `mapstructure:"nats_url"`
	NATSSubject    string        `mapstructure:"nats_subject"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Load reads configuration with precedence env > config file > defaults.
// An empty path looks for ./cleanshift.yaml and tolerates its absence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debugf("No .env file loaded: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	} else {
		v.SetConfigName("cleanshift")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("CLEANSHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Plain variable names kept for existing deployments.
	_ = v.BindEnv("server.port", "CLEANSHIFT_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.gin_mode", "CLEANSHIFT_SERVER_GIN_MODE", "GIN_MODE")
	_ = v.BindEnv("auth.jwt_secret", "CLEANSHIFT_AUTH_JWT_SECRET", "JWT_SECRET")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must be set")
	}
	if c.Monitor.Interval <= 0 {
		return errors.New("monitor.interval must be positive")
	}
	if c.Monitor.GracePeriod < 0 {
		return errors.New("monitor.grace_period must not be negative")
	}
	if c.Monitor.QueryTimeout <= 0 || c.Monitor.AlertTimeout <= 0 {
		return errors.New("monitor timeouts must be positive")
	}
	if _, err := c.Monitor.Location(); err != nil {
		return fmt.Errorf("monitor.timezone: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "debug")
	v.SetDefault("server.trusted_proxies", []string{"127.0.0.1"})
	v.SetDefault("server.allowed_origin", "http://127.0.0.1:5500")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:cleanshift.db?_foreign_keys=on")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("monitor.interval", "60s")
	v.SetDefault("monitor.grace_period", "5m")
	v.SetDefault("monitor.query_timeout", "10s")
	v.SetDefault("monitor.alert_timeout", "10s")
	v.SetDefault("monitor.timezone", "Local")

	v.SetDefault("notify.nats_url", "")
	v.SetDefault("notify.nats_subject", "cleanshift.alerts")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.webhook_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("ratelimit.rps", 50)
	v.SetDefault("ratelimit.burst", 100)
}
