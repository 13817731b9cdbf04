package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/mitate/internal/models"
)

func TestCatalogLookup(t *testing.T) {
	c := NewCatalog([]*models.Product{
		{ID: "1", Name: "Blue Shirt"},
		{ID: "2", Name: "Red Dress"},
	})

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	p, ok := c.Get("2")
	if !ok || p.Name != "Red Dress" {
		t.Errorf("Get(2) = %+v, %v", p, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should return false")
	}
}

func TestCatalogDuplicateIDLastWins(t *testing.T) {
	c := NewCatalog([]*models.Product{
		{ID: "1", Name: "First"},
		{ID: "1", Name: "Second"},
	})
	p, _ := c.Get("1")
	if p.Name != "Second" {
		t.Errorf("duplicate id resolved to %q, want Second", p.Name)
	}
}

func TestCatalogReplaceSwapsSnapshot(t *testing.T) {
	c := NewCatalog([]*models.Product{{ID: "1", Name: "Blue Shirt"}})

	c.Replace([]*models.Product{
		{ID: "1", Name: "Blue Shirt"},
		{ID: "2", Name: "Green Scarf"},
	})

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if p, ok := c.Get("2"); !ok || p.Name != "Green Scarf" {
		t.Errorf("Get(2) after Replace = %+v, %v", p, ok)
	}
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	p := &models.Product{
		ID:       "42",
		Name:     "Linen Blazer",
		Category: "Apparel",
		Gender:   "Women",
		Color:    "Beige",
		ImageURL: "http://example.com/42.jpg",
	}
	if err := store.UpsertProduct(ctx, p); err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}

	got, err := store.GetProduct(ctx, "42")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got == nil || got.Name != "Linen Blazer" || got.Color != "Beige" {
		t.Errorf("GetProduct = %+v", got)
	}

	// Upsert with same id replaces fields
	p.Color = "Navy"
	if err := store.UpsertProduct(ctx, p); err != nil {
		t.Fatalf("UpsertProduct update: %v", err)
	}
	got, _ = store.GetProduct(ctx, "42")
	if got.Color != "Navy" {
		t.Errorf("updated color = %q, want Navy", got.Color)
	}

	count, err := store.CountProducts(ctx)
	if err != nil {
		t.Fatalf("CountProducts: %v", err)
	}
	if count != 1 {
		t.Errorf("CountProducts = %d, want 1", count)
	}

	missing, err := store.GetProduct(ctx, "nope")
	if err != nil {
		t.Fatalf("GetProduct missing: %v", err)
	}
	if missing != nil {
		t.Errorf("GetProduct(nope) = %+v, want nil", missing)
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	data := "id,name,category,gender,color,description,image_url\n" +
		"1,Blue Oxford Shirt,Apparel,Men,Blue,Classic button-down,http://example.com/1.jpg\n" +
		",Headerless Row,,,,,\n" +
		"2,Red Midi Dress,Apparel,Women,Red,,\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	products, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("len(products) = %d, want 2 (row without id skipped)", len(products))
	}
	if products[0].ID != "1" || products[0].Color != "Blue" {
		t.Errorf("products[0] = %+v", products[0])
	}
	if products[1].Name != "Red Midi Dress" {
		t.Errorf("products[1] = %+v", products[1])
	}
}

func TestLoadCSVMissingIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("name,color\nShirt,Blue\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCSV(path); err == nil {
		t.Error("LoadCSV should fail without an id column")
	}
}
