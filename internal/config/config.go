// Package config loads the hfsm command configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParsingConfig is returned when the environment cannot be parsed.
var ErrParsingConfig = errors.New("config: failed to parse environment")

// Config holds every setting of the hfsm command. Flags override it.
type Config struct {
	LogLevel     string        `env:"HFSM_LOG_LEVEL"     envDefault:"info"`
	HTTPAddr     string        `env:"HFSM_HTTP_ADDR"     envDefault:":8080"`
	MachineID    string        `env:"HFSM_MACHINE_ID"    envDefault:"traffic"`
	HistoryLimit int           `env:"HFSM_HISTORY_LIMIT" envDefault:"100"`
	RedisAddr    string        `env:"HFSM_REDIS_ADDR"`
	RedisDB      int           `env:"HFSM_REDIS_DB"      envDefault:"0"`
	RedisPrefix  string        `env:"HFSM_REDIS_PREFIX"  envDefault:"hfsm:snapshot:"`
	SnapshotTTL  time.Duration `env:"HFSM_SNAPSHOT_TTL"  envDefault:"0s"`
	Codec        string        `env:"HFSM_SNAPSHOT_CODEC" envDefault:"json"`
}

// Load reads files (".env" when none are given) if they exist, then parses
// the environment.
func Load(files ...string) (Config, error) {
	// Missing .env files are fine.
	_ = godotenv.Load(files...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Join(ErrParsingConfig, err)
	}

	if cfg.Codec != "json" && cfg.Codec != "yaml" {
		return cfg, fmt.Errorf("%w: unknown snapshot codec %q", ErrParsingConfig, cfg.Codec)
	}

	return cfg, nil
}
