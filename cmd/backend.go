package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/adfharrison1/go-analytics/pkg/api"
	"github.com/adfharrison1/go-analytics/pkg/config"
	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/adfharrison1/go-analytics/pkg/storage"
	"github.com/adfharrison1/go-analytics/pkg/storage/redisstore"
)

// backend is an opened document store. indexer is nil when the store has
// no field indexes.
type backend struct {
	store   api.Store
	indexer domain.IndexManager
	close   func() error
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return openMemoryBackend(cfg.Storage)
	case config.BackendRedis:
		store, err := redisstore.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisstore.WithPrefix(cfg.Redis.Prefix))
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("Connected to redis")
		return &backend{store: store, close: store.Close}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func openMemoryBackend(cfg config.StorageConfig) (*backend, error) {
	options := []storage.StorageOption{
		storage.WithDataDir(cfg.DataDir),
		storage.WithMaxMemory(cfg.MaxMemoryMB),
		storage.WithTransactionSave(cfg.TransactionSave),
	}
	if cfg.BackgroundSave > 0 {
		options = append(options, storage.WithBackgroundSave(cfg.BackgroundSave))
		log.Info().Dur("interval", cfg.BackgroundSave).Msg("Background save enabled")
	} else if !cfg.TransactionSave {
		log.Warn().Msg("Background save disabled - data only saved on graceful shutdown")
	}

	engine := storage.NewStorageEngine(options...)
	if err := engine.LoadCollectionMetadata(); err != nil {
		return nil, fmt.Errorf("failed to load collections from %s: %w", cfg.DataDir, err)
	}
	engine.StartBackgroundWorkers()
	log.Info().Str("data_dir", cfg.DataDir).Msg("Loaded collection metadata")

	return &backend{
		store:   engine,
		indexer: engine,
		close: func() error {
			engine.StopBackgroundWorkers()
			log.Info().Str("data_dir", cfg.DataDir).Msg("Saving data")
			if err := engine.SaveAll(); err != nil {
				return errors.Join(errors.New("final save failed"), err)
			}
			return nil
		},
	}, nil
}
