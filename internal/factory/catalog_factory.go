package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/adapters/catalog"
	"github.com/mikey/usenet-explorer/internal/config"
	"github.com/mikey/usenet-explorer/internal/core"
)

// CatalogFactory creates catalog snapshot stores based on configuration
type CatalogFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCatalogFactory creates a new catalog factory
func NewCatalogFactory(cfg *config.Config, logger *zap.Logger) *CatalogFactory {
	return &CatalogFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a snapshot store based on the configuration
func (f *CatalogFactory) CreateStore() (core.CatalogStore, error) {
	cacheCfg := f.cfg.GetCache()

	switch cacheCfg.Type {
	case "file":
		return catalog.NewFileStore(cacheCfg.Path, f.logger), nil
	case "memory":
		return catalog.NewMemoryStore(), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return catalog.NewSQLiteStore(cacheCfg.SQLitePath, f.logger)
	case "mysql":
		return catalog.NewMySQLStore(cacheCfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported catalog store type: %s", cacheCfg.Type)
	}
}

// CreateCatalog creates the catalog wired to its configured store
func (f *CatalogFactory) CreateCatalog() (*core.Catalog, error) {
	store, err := f.CreateStore()
	if err != nil {
		return nil, err
	}
	cacheCfg := f.cfg.GetCache()
	return core.NewCatalog(store, f.logger, cacheCfg.MaxAge, cacheCfg.PageSize), nil
}
