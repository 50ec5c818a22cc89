package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Daemon holds sweepd settings read from the environment.
type Daemon struct {
	GRPCAddr        string        `env:"SWEEPD_GRPC_ADDR"        envDefault:":50051"`
	HTTPAddr        string        `env:"SWEEPD_HTTP_ADDR"        envDefault:":8080"`
	LogLevel        string        `env:"SWEEPD_LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"SWEEPD_LOG_FORMAT"       envDefault:"json"`
	DBPath          string        `env:"SWEEPD_DB_PATH"`
	MaxSnapshots    int           `env:"SWEEPD_MAX_SNAPSHOTS"    envDefault:"10000"`
	ShutdownTimeout time.Duration `env:"SWEEPD_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadDaemonFromEnv reads and validates the daemon settings.
func LoadDaemonFromEnv() (Daemon, error) {
	var cfg Daemon
	if err := env.Parse(&cfg); err != nil {
		return Daemon{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxSnapshots <= 0 {
		return Daemon{}, fmt.Errorf("SWEEPD_MAX_SNAPSHOTS must be positive, got %d", cfg.MaxSnapshots)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return Daemon{}, fmt.Errorf("SWEEPD_LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}
	return cfg, nil
}
