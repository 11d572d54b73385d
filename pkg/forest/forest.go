// Package forest opens a configured storage engine. It is the wiring
// layer between the environment, the log setup and the engines.
package forest

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/goydb/forest/pkg/bbolt_engine"
	"github.com/goydb/forest/pkg/leveldb_engine"
	"github.com/goydb/forest/pkg/log"
	"github.com/goydb/forest/pkg/port"
)

// Config is read from the environment. Command line flags may
// override single fields afterwards.
type Config struct {
	// Path of the database, a file for bbolt, a directory for
	// leveldb.
	Path string `env:"FOREST_DB" envDefault:"forest.db"`

	// Engine is bbolt or leveldb.
	Engine string `env:"FOREST_ENGINE" envDefault:"bbolt"`

	// Store documents are read from and written to.
	Store string `env:"FOREST_STORE" envDefault:"docs"`

	LogLevel string `env:"FOREST_LOG_LEVEL" envDefault:"warn"`
	LogJSON  bool   `env:"FOREST_LOG_JSON" envDefault:"false"`
}

func NewConfig() (*Config, error) {
	cfg := new(Config)
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitLogger configures the process wide loggers.
func (cfg *Config) InitLogger() error {
	level, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	wt := log.ConsoleWriter
	if cfg.LogJSON {
		wt = log.JSONWriter
	}
	log.Init(log.Options{LogLevel: level, Type: wt})
	return nil
}

// Open opens the configured engine.
func (cfg *Config) Open() (port.Engine, error) {
	switch cfg.Engine {
	case "bbolt":
		return bbolt_engine.Open(cfg.Path)
	case "leveldb":
		return leveldb_engine.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}
