package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Fakaloan"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host          string `envconfig:"DB_HOST" default:"localhost"`
		Port          int    `envconfig:"DB_PORT" default:"5432"`
		User          string `envconfig:"DB_USER" default:"postgres"`
		Password      string `envconfig:"DB_PASSWORD" default:""`
		Name          string `envconfig:"DB_NAME" default:"fakaloan"`
		MigrationsDir string `envconfig:"DB_MIGRATIONS_DIR" default:"migrations"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		// HMAC secret shared with the identity provider that issues the
		// bearer tokens. Token issuance itself lives outside this service.
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Recalc struct {
		Workers     int           `envconfig:"RECALC_WORKERS" default:"4"`
		QueueDepth  int           `envconfig:"RECALC_QUEUE_DEPTH" default:"64"`
		MaxAttempts int           `envconfig:"RECALC_MAX_ATTEMPTS" default:"5"`
		RetryDelay  time.Duration `envconfig:"RECALC_RETRY_DELAY" default:"500ms"`
		Timeout     time.Duration `envconfig:"RECALC_TIMEOUT" default:"10s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
