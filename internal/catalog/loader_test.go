package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/mitate/internal/config"
	"github.com/hyperjump/mitate/internal/models"
	"github.com/hyperjump/mitate/internal/vector"
)

func writeIndex(t *testing.T, path string, dims int, ids ...string) {
	t.Helper()
	idx, err := vector.NewMemoryIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	vectors := make([][]float32, len(ids))
	for i := range ids {
		vec := make([]float32, dims)
		vec[i%dims] = 1
		vectors[i] = vec
	}
	if err := idx.Add(context.Background(), ids, vectors); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
}

func TestLoaderSeedsAndLoads(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "products.csv")
	csvData := "id,name,category,gender,color\n1,Blue Shirt,Apparel,Men,Blue\n2,Red Dress,Apparel,Women,Red\n"
	if err := os.WriteFile(csvPath, []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.StorageConfig{
		DatabasePath:    filepath.Join(dir, "catalog.db"),
		TextIndexPath:   filepath.Join(dir, "text.idx"),
		ImageIndexPath:  filepath.Join(dir, "image.idx"),
		ProductsCSVPath: csvPath,
	}
	writeIndex(t, cfg.TextIndexPath, 4, "1", "2")
	writeIndex(t, cfg.ImageIndexPath, 4, "1", "2")

	loader := NewLoader(cfg, 4, zap.NewNop())
	data, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer data.Store.Close()

	if data.Catalog.Len() != 2 {
		t.Errorf("catalog size = %d, want 2", data.Catalog.Len())
	}
	if data.TextIndex.Size() != 2 {
		t.Errorf("text index size = %d, want 2", data.TextIndex.Size())
	}
	if data.ImageIndex == nil {
		t.Error("image index should be loaded")
	}
	if p, ok := data.Catalog.Get("2"); !ok || p.Name != "Red Dress" {
		t.Errorf("catalog Get(2) = %+v, %v", p, ok)
	}
}

// After a reindex adds products, Reload must refresh both the indexes and
// the catalog snapshot so new index hits resolve to products.
func TestLoaderReloadPicksUpNewProducts(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "products.csv")
	csvData := "id,name,category\n1,Blue Shirt,Apparel\n2,Red Dress,Apparel\n"
	if err := os.WriteFile(csvPath, []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.StorageConfig{
		DatabasePath:    filepath.Join(dir, "catalog.db"),
		TextIndexPath:   filepath.Join(dir, "text.idx"),
		ProductsCSVPath: csvPath,
	}
	writeIndex(t, cfg.TextIndexPath, 4, "1", "2")

	ctx := context.Background()
	loader := NewLoader(cfg, 4, zap.NewNop())
	data, err := loader.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer data.Store.Close()

	// Simulate a reindex run: a new product lands in the store and the
	// index file on disk is rewritten with its id.
	newProduct := &models.Product{ID: "3", Name: "Green Scarf", Category: "Accessories"}
	if err := data.Store.UpsertProduct(ctx, newProduct); err != nil {
		t.Fatal(err)
	}
	writeIndex(t, cfg.TextIndexPath, 4, "1", "2", "3")

	if err := loader.Reload(ctx, data); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if data.TextIndex.Size() != 3 {
		t.Errorf("text index size = %d, want 3", data.TextIndex.Size())
	}
	if data.Catalog.Len() != 3 {
		t.Errorf("catalog size = %d, want 3", data.Catalog.Len())
	}
	if p, ok := data.Catalog.Get("3"); !ok || p.Name != "Green Scarf" {
		t.Errorf("catalog Get(3) = %+v, %v", p, ok)
	}
}

func TestLoaderMissingImageIndexDisablesImageSearch(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "products.csv")
	if err := os.WriteFile(csvPath, []byte("id,name\n1,Shirt\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.StorageConfig{
		DatabasePath:    filepath.Join(dir, "catalog.db"),
		TextIndexPath:   filepath.Join(dir, "text.idx"),
		ImageIndexPath:  filepath.Join(dir, "image.idx"),
		ProductsCSVPath: csvPath,
	}
	writeIndex(t, cfg.TextIndexPath, 4, "1")

	data, err := NewLoader(cfg, 4, zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer data.Store.Close()

	if data.ImageIndex != nil {
		t.Error("image index should be nil when no file exists")
	}
}

func TestLoaderRequiresTextIndex(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "products.csv")
	if err := os.WriteFile(csvPath, []byte("id,name\n1,Shirt\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.StorageConfig{
		DatabasePath:    filepath.Join(dir, "catalog.db"),
		TextIndexPath:   filepath.Join(dir, "text.idx"),
		ProductsCSVPath: csvPath,
	}

	if _, err := NewLoader(cfg, 4, zap.NewNop()).Load(context.Background()); err == nil {
		t.Error("Load should fail when the text index is missing")
	}
}
