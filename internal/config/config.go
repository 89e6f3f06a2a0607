package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/monocle-dev/monocle/internal/notify"
	"github.com/monocle-dev/monocle/internal/types"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"port" validate:"required,numeric"`
	DatabaseURL string `mapstructure:"database_url" validate:"required"`

	RedisAddr     string `mapstructure:"redis_addr" validate:"required,hostname_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
	QueueName     string `mapstructure:"queue_name" validate:"required"`

	WorkerConcurrency int           `mapstructure:"worker_concurrency" validate:"gte=1,lte=1000"`
	JobMaxAttempts    int           `mapstructure:"job_max_attempts" validate:"gte=1"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout" validate:"gt=0"`
	DeliveryTimeout   time.Duration `mapstructure:"delivery_timeout" validate:"gt=0"`
	LockTTL           time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port" validate:"gte=1,lte=65535"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	SMTPFrom     string `mapstructure:"smtp_from" validate:"omitempty,email"`

	JWTSecret      string `mapstructure:"jwt_secret"`
	AllowedOrigins string `mapstructure:"allowed_origins"`

	LogLevel       string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogDevelopment bool   `mapstructure:"log_development"`
}

var defaults = map[string]interface{}{
	"port":               "3000",
	"redis_addr":         "localhost:6379",
	"redis_db":           0,
	"queue_name":         "monocle:checks",
	"worker_concurrency": 10,
	"job_max_attempts":   3,
	"probe_timeout":      10 * time.Second,
	"delivery_timeout":   10 * time.Second,
	"lock_ttl":           time.Minute,
	"smtp_port":          587,
	"log_level":          "info",
	"log_development":    false,
}

// keys without a default still need binding so Unmarshal sees the env var.
var unbound = []string{
	"database_url",
	"redis_password",
	"smtp_host",
	"smtp_username",
	"smtp_password",
	"smtp_from",
	"jwt_secret",
	"allowed_origins",
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return FromViper(viper.New())
}

// FromViper applies defaults and environment bindings to v and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for _, key := range unbound {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) SMTP() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	}
}

func (c *Config) Origins() []string {
	return types.AllowedOrigins(c.AllowedOrigins)
}
