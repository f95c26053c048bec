package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config captures the runtime configuration for the application.
type Config struct {
	AppName string `envconfig:"APP_NAME" default:"Bakery Back Office v1.0"`
	Port    string `envconfig:"PORT" default:"3000"`
	LogMode string `envconfig:"LOG_MODE" default:"development"`

	Database DatabaseConfig
	JWT      JWTConfig
	Admin    AdminConfig
}

// DatabaseConfig contains the database connection settings.
type DatabaseConfig struct {
	Driver          string        `envconfig:"DB_DRIVER" default:"postgres"`
	URL             string        `envconfig:"DATABASE_URL"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	User            string        `envconfig:"DB_USER"`
	Password        string        `envconfig:"DB_PASSWORD"`
	Name            string        `envconfig:"DB_NAME"`
	Port            string        `envconfig:"DB_PORT" default:"5432"`
	TimeZone        string        `envconfig:"DB_TIMEZONE" default:"UTC"`
	SQLitePath      string        `envconfig:"SQLITE_PATH" default:"bakery.db"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
}

type JWTConfig struct {
	Secret string        `envconfig:"JWT_SECRET"`
	TTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`
	Issuer string        `envconfig:"JWT_ISSUER" default:"bakery-backoffice"`
}

// AdminConfig seeds the first senior supervisor account.
type AdminConfig struct {
	Email    string `envconfig:"ADMIN_EMAIL" default:"admin@example.com"`
	Password string `envconfig:"ADMIN_PASSWORD" default:"admin123"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	if strings.TrimSpace(d.URL) != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.TimeZone,
	)
}

// Load reads .env files when present, then the environment.
func Load(files ...string) (Config, bool, error) {
	envLoaded := godotenv.Load(files...) == nil

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, envLoaded, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, envLoaded, err
	}
	return cfg, envLoaded, nil
}

func (c *Config) validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("port must not be empty")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	return nil
}
