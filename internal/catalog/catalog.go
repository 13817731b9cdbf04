// Package catalog provides product storage and the in-memory snapshot used
// on the query hot path.
package catalog

import (
	"context"
	"sync/atomic"

	"github.com/hyperjump/mitate/internal/models"
)

// Store defines durable product storage.
type Store interface {
	UpsertProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	CountProducts(ctx context.Context) (int, error)
	Close() error
}

// snapshot is one immutable view of the catalog with an id-indexed map
// built once, so hot-path lookups are O(1).
type snapshot struct {
	products []*models.Product
	byID     map[string]*models.Product
}

func newSnapshot(products []*models.Product) *snapshot {
	byID := make(map[string]*models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &snapshot{products: products, byID: byID}
}

// Catalog holds the current product snapshot behind an atomic pointer:
// reads never block, and Replace swaps in a whole new view at once so a
// reload is never observed half-applied.
type Catalog struct {
	snap atomic.Pointer[snapshot]
}

// NewCatalog builds a catalog from the given products. Later duplicates of
// an id win, matching store upsert semantics.
func NewCatalog(products []*models.Product) *Catalog {
	c := &Catalog{}
	c.Replace(products)
	return c
}

// Replace atomically swaps in a new snapshot built from products.
func (c *Catalog) Replace(products []*models.Product) {
	c.snap.Store(newSnapshot(products))
}

// Get returns the product with the given id.
func (c *Catalog) Get(id string) (*models.Product, bool) {
	p, ok := c.snap.Load().byID[id]
	return p, ok
}

// All returns the current snapshot's products in load order. Callers must
// not mutate the slice.
func (c *Catalog) All() []*models.Product {
	return c.snap.Load().products
}

// Len returns the number of products in the current snapshot.
func (c *Catalog) Len() int {
	return len(c.snap.Load().products)
}
