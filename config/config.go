// Package config reads command configuration from the environment and an optional .env file.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config holds command configuration.
type Config struct {
	RunDir    string
	DBPath    string
	Port      int
	LogLevel  string
	PrettyLog bool
}

// Load reads configuration from QOPTICS_* environment variables, after loading .env if it exists.
// Variables already set in the environment take precedence over .env.
func Load(envFiles ...string) (*Config, error) {
	// A missing .env is not an error.
	_ = godotenv.Load(envFiles...)

	runDir := getEnv("QOPTICS_RUN_DIR", filepath.Join("runs", "qoptics"))
	cfg := &Config{
		RunDir:    runDir,
		DBPath:    getEnv("QOPTICS_DB_PATH", filepath.Join(runDir, "runs.db")),
		Port:      getEnvAsInt("QOPTICS_PORT", 8080),
		LogLevel:  getEnv("QOPTICS_LOG_LEVEL", "info"),
		PrettyLog: getEnvAsBool("QOPTICS_PRETTY_LOG", true),
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("QOPTICS_DB_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("QOPTICS_PORT %d out of range", c.Port)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "QOPTICS_LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// NewLogger returns a logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.PrettyLog {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
