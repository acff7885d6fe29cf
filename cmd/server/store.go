package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/connect4-backend/internal/config"
	"github.com/DoyleJ11/connect4-backend/internal/logging"
	"github.com/DoyleJ11/connect4-backend/internal/store"
	"github.com/DoyleJ11/connect4-backend/internal/store/memstore"
	"github.com/DoyleJ11/connect4-backend/internal/store/postgres"
	"github.com/DoyleJ11/connect4-backend/internal/store/sqlite"
)

func setup(envFile string) (config.Config, *zap.Logger, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// openStore opens the configured backend. The sql backends apply their schema
// on open.
func openStore(cfg config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("sqlite store opened", zap.String("path", cfg.SQLitePath))
		return st, nil
	case config.DriverPostgres:
		st, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info("postgres store opened")
		return st, nil
	case config.DriverMemory:
		log.Warn("memory store: rooms are lost on restart")
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
