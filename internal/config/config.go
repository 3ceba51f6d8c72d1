package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Email      EmailConfig      `mapstructure:"email"`
	Recovery   RecoveryConfig   `mapstructure:"recovery"`
	Invitation InvitationConfig `mapstructure:"invitation"`
	Sweep      SweepConfig      `mapstructure:"sweep"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SSLRootCert     string        `mapstructure:"ssl_root_cert"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromEmail    string `mapstructure:"from_email"`
	FromName     string `mapstructure:"from_name"`
	// BaseURL is the public web origin used to build invitation links.
	BaseURL string `mapstructure:"base_url"`
}

// RecoveryConfig holds the password-reset policy parameters. TTL and the
// attempt budget are policy, not code: a 6-digit space (1e6) stays safe
// online only because guesses are capped and the window is short.
type RecoveryConfig struct {
	CodeLength    int           `mapstructure:"code_length"`
	TTL           time.Duration `mapstructure:"ttl"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	ReissueLimit  int           `mapstructure:"reissue_limit"`
	ReissueWindow time.Duration `mapstructure:"reissue_window"`
}

// InvitationConfig holds the project-invitation policy parameters.
type InvitationConfig struct {
	TokenBytes int           `mapstructure:"token_bytes"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type SweepConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/jiralite/")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("JIRALITE")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("email.resend_api_key", "RESEND_API_KEY")

	// Policy defaults
	viper.SetDefault("recovery.code_length", 6)
	viper.SetDefault("recovery.ttl", 15*time.Minute)
	viper.SetDefault("recovery.max_attempts", 5)
	viper.SetDefault("recovery.reissue_limit", 3)
	viper.SetDefault("recovery.reissue_window", time.Hour)
	viper.SetDefault("invitation.token_bytes", 32)
	viper.SetDefault("invitation.ttl", 7*24*time.Hour)
	viper.SetDefault("sweep.enabled", true)
	viper.SetDefault("sweep.interval", time.Hour)
	viper.SetDefault("email.from_name", "JiraLite")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Load from env if not in config
	if cfg.Database.Password == "" {
		cfg.Database.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
	if cfg.Email.ResendAPIKey == "" {
		cfg.Email.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	}

	// Validate required credentials
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required")
	}
	if cfg.Redis.Password == "" {
		return nil, fmt.Errorf("REDIS_PASSWORD environment variable is required")
	}
	if cfg.Email.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	// Default SSL mode
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "require"
	}

	return &cfg, nil
}

// DSN returns PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
	if c.SSLRootCert != "" {
		dsn += "&sslrootcert=" + c.SSLRootCert
	}
	return dsn
}
