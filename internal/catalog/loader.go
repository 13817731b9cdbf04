package catalog

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/mitate/internal/config"
	"github.com/hyperjump/mitate/internal/vector"
)

// Data is the loaded runtime state: the catalog snapshot and its vector
// indexes. ImageIndex is nil when no image embeddings were found, in which
// case image search is disabled but text search still works.
type Data struct {
	Store      *SQLiteStore
	Catalog    *Catalog
	TextIndex  vector.Index
	ImageIndex vector.Index
}

// Loader assembles runtime data from the configured storage paths.
type Loader struct {
	cfg    config.StorageConfig
	dims   int
	logger *zap.Logger
}

func NewLoader(cfg config.StorageConfig, dimensions int, logger *zap.Logger) *Loader {
	return &Loader{cfg: cfg, dims: dimensions, logger: logger}
}

// Load opens the product store, seeds it from CSV when the database is
// empty, and loads the persisted vector indexes. Text embeddings are
// required; image embeddings are optional.
func (l *Loader) Load(ctx context.Context) (*Data, error) {
	store, err := NewSQLiteStore(l.cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	count, err := store.CountProducts(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}
	if count == 0 && l.cfg.ProductsCSVPath != "" {
		n, err := l.seedFromCSV(ctx, store)
		if err != nil {
			store.Close()
			return nil, err
		}
		l.logger.Info("seeded product catalog from csv",
			zap.String("path", l.cfg.ProductsCSVPath),
			zap.Int("products", n))
	}

	products, err := store.ListProducts(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}
	if len(products) == 0 {
		store.Close()
		return nil, fmt.Errorf("product catalog is empty")
	}

	textIndex, err := l.loadIndex(l.cfg.TextIndexPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load text index: %w", err)
	}
	if textIndex.Size() == 0 {
		store.Close()
		return nil, fmt.Errorf("text index %s is empty, run the indexer first", l.cfg.TextIndexPath)
	}

	imageIndex, err := l.loadOptionalIndex(l.cfg.ImageIndexPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load image index: %w", err)
	}
	if imageIndex == nil {
		l.logger.Warn("image index not found, image search disabled",
			zap.String("path", l.cfg.ImageIndexPath))
	}

	l.logger.Info("catalog loaded",
		zap.Int("products", len(products)),
		zap.Int("text_vectors", textIndex.Size()),
		zap.Bool("image_search", imageIndex != nil))

	return &Data{
		Store:      store,
		Catalog:    NewCatalog(products),
		TextIndex:  textIndex,
		ImageIndex: imageIndex,
	}, nil
}

func (l *Loader) seedFromCSV(ctx context.Context, store *SQLiteStore) (int, error) {
	products, err := LoadCSV(l.cfg.ProductsCSVPath)
	if err != nil {
		return 0, err
	}
	for _, p := range products {
		if err := store.UpsertProduct(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(products), nil
}

func (l *Loader) loadIndex(path string) (vector.Index, error) {
	idx, err := vector.NewMemoryIndex(l.dims)
	if err != nil {
		return nil, err
	}
	if err := idx.Load(path); err != nil {
		return nil, err
	}
	return idx, nil
}

// loadOptionalIndex returns nil when the index file is missing or empty.
func (l *Loader) loadOptionalIndex(path string) (vector.Index, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	idx, err := l.loadIndex(path)
	if err != nil {
		return nil, err
	}
	if idx.Size() == 0 {
		return nil, nil
	}
	return idx, nil
}

// Reload refreshes data in place after a reindex: the catalog snapshot is
// swapped from the store and the index contents are reloaded from disk, so
// search hits and product lookups stay consistent with each other. The file
// watcher calls this whenever an index file changes.
func (l *Loader) Reload(ctx context.Context, data *Data) error {
	products, err := data.Store.ListProducts(ctx)
	if err != nil {
		return err
	}
	if err := data.TextIndex.Load(l.cfg.TextIndexPath); err != nil {
		return fmt.Errorf("load text index: %w", err)
	}
	if data.ImageIndex != nil {
		if err := data.ImageIndex.Load(l.cfg.ImageIndexPath); err != nil {
			return fmt.Errorf("load image index: %w", err)
		}
	}
	data.Catalog.Replace(products)
	l.logger.Info("catalog reloaded",
		zap.Int("products", len(products)),
		zap.Int("text_vectors", data.TextIndex.Size()))
	return nil
}
