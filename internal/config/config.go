// Package config loads service settings from app.env, .env and the environment.
package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores all configuration of the service. Values come from an
// optional app.env file under the search path, overridden by the environment.
type Config struct {
	Port          string `mapstructure:"PORT"`
	Environment   string `mapstructure:"ENVIRONMENT"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMigrate     bool   `mapstructure:"DB_MIGRATE"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	RedisURL      string `mapstructure:"REDIS_URL"`

	RateRPS   float64 `mapstructure:"RATE_RPS"`
	RateBurst int     `mapstructure:"RATE_BURST"`

	CSPTimeLimit     time.Duration `mapstructure:"CSP_TIME_LIMIT"`
	CSPMaxDeliveries int           `mapstructure:"CSP_MAX_DELIVERIES"`
	GAPopulation     int           `mapstructure:"GA_POPULATION"`
	GAGenerations    int           `mapstructure:"GA_GENERATIONS"`
	GASeed           int64         `mapstructure:"GA_SEED"`
}

var defaults = map[string]any{
	"PORT":               "8080",
	"ENVIRONMENT":        "development",
	"DATABASE_URL":       "",
	"DB_MIGRATE":         false,
	"MIGRATIONS_DIR":     "db/migrations",
	"REDIS_URL":          "",
	"RATE_RPS":           5.0,
	"RATE_BURST":         10,
	"CSP_TIME_LIMIT":     "10s",
	"CSP_MAX_DELIVERIES": 30,
	"GA_POPULATION":      50,
	"GA_GENERATIONS":     100,
	"GA_SEED":            0,
}

// Load reads configuration from path/app.env (if present) and the
// environment. A .env file in the working directory is loaded first and
// never overrides variables already set.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Development reports whether the service runs with developer defaults.
func (c Config) Development() bool { return c.Environment == "" || c.Environment == "development" }
