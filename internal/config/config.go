package config

import (
	"errors"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr string `validate:"required"`
	}
	Store struct {
		Driver     string `validate:"required,oneof=memory sqlite postgres"`
		SQLitePath string
		PgDSN      string
	}
	Sweep struct {
		Schedule string `validate:"required"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.Store.Driver = strings.ToLower(getenv("STORE_DRIVER", "sqlite"))
	c.Store.SQLitePath = getenv("SQLITE_PATH", "data/shotlist.db")
	c.Store.PgDSN = os.Getenv("PG_DSN")
	c.Sweep.Schedule = getenv("SWEEP_SCHEDULE", "@every 30m")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/shotlist.log")

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.Store.Driver == "postgres" && c.Store.PgDSN == "" {
		return Config{}, errors.New("PG_DSN required when STORE_DRIVER is postgres")
	}
	if c.Store.Driver == "sqlite" && c.Store.SQLitePath == "" {
		return Config{}, errors.New("SQLITE_PATH required when STORE_DRIVER is sqlite")
	}
	return c, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
