package store

import (
	"context"
	"fmt"

	"github.com/relicforge/relic-server-go/internal/config"
	"go.uber.org/zap"
)

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		s = NewMemoryStore()
	case config.DriverFile:
		s, err = NewFileStore(cfg.Path, cfg.Key)
	case config.DriverSQLite:
		s, err = NewSQLiteStore(ctx, cfg.Path, cfg.Key)
	case config.DriverPostgres:
		s, err = NewPostgresStore(ctx, cfg.DSN, cfg.Key)
	case config.DriverS3:
		s, err = NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		}, cfg.Key)
	default:
		return nil, fmt.Errorf("unknown store driver: %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("document store opened",
		zap.String("driver", cfg.Driver),
		zap.String("key", cfg.Key))
	return s, nil
}
