package shop

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Catalog owns the product records and their stock counters. AdjustStock,
// ReserveStock and RestoreStock are the only mutation paths the ledger and
// the lifecycle coordinator use; Update with an absolute stock value is
// reserved for administrator corrections.
type Catalog interface {
	Create(ctx context.Context, in ProductInput) (Product, error)
	Update(ctx context.Context, id string, patch ProductPatch) (Product, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context) ([]Product, error)

	// AdjustStock applies stock += delta atomically. A negative result is
	// rejected with InsufficientStockError and nothing changes.
	AdjustStock(ctx context.Context, id string, delta int) (Product, error)

	// ReserveStock decrements stock for every item or for none of them.
	// On any shortfall the whole call fails naming the offending product.
	ReserveStock(ctx context.Context, items []LineItem) error

	// RestoreStock re-adds reserved quantities. Items whose product has been
	// deleted since the reservation are skipped; there is no counter left to
	// restore into.
	RestoreStock(ctx context.Context, items []LineItem) error
}

func validateInput(in ProductInput) error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.PriceCents < 0 {
		return &ValidationError{Field: "price_cents", Reason: "must not be negative"}
	}
	if in.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return nil
}

func validatePatch(p ProductPatch) error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.PriceCents != nil && *p.PriceCents < 0 {
		return &ValidationError{Field: "price_cents", Reason: "must not be negative"}
	}
	if p.Stock != nil && *p.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return nil
}

// MemCatalog is the in-process authoritative store. One mutex guards the
// whole map, so every mutation is a short serializable critical section and
// multi-product reservations are trivially all-or-nothing.
type MemCatalog struct {
	mu       sync.RWMutex
	products map[string]*Product
}

func NewMemCatalog() *MemCatalog {
	return &MemCatalog{products: make(map[string]*Product)}
}

func (c *MemCatalog) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := validateInput(in); err != nil {
		return Product{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		OwnerID:     in.OwnerID,
		CreatedAt:   time.Now().UTC(),
	}
	c.products[p.ID] = p
	return *p, nil
}

func (c *MemCatalog) Update(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	if err := validatePatch(patch); err != nil {
		return Product{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return Product{}, &NotFoundError{Kind: "product", ID: id}
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.PriceCents != nil {
		p.PriceCents = *patch.PriceCents
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	return *p, nil
}

func (c *MemCatalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[id]; !ok {
		return &NotFoundError{Kind: "product", ID: id}
	}
	delete(c.products, id)
	return nil
}

func (c *MemCatalog) Get(ctx context.Context, id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return Product{}, &NotFoundError{Kind: "product", ID: id}
	}
	return *p, nil
}

func (c *MemCatalog) List(ctx context.Context) ([]Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (c *MemCatalog) AdjustStock(ctx context.Context, id string, delta int) (Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return Product{}, &NotFoundError{Kind: "product", ID: id}
	}
	if p.Stock+delta < 0 {
		return Product{}, &InsufficientStockError{ProductID: id, Requested: -delta, Available: p.Stock}
	}
	p.Stock += delta
	return *p, nil
}

func (c *MemCatalog) ReserveStock(ctx context.Context, items []LineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Validate every line before touching any counter.
	for _, it := range items {
		p, ok := c.products[it.ProductID]
		if !ok {
			return &NotFoundError{Kind: "product", ID: it.ProductID}
		}
		if it.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		if p.Stock < it.Quantity {
			return &InsufficientStockError{ProductID: it.ProductID, Requested: it.Quantity, Available: p.Stock}
		}
	}
	for _, it := range items {
		c.products[it.ProductID].Stock -= it.Quantity
	}
	return nil
}

func (c *MemCatalog) RestoreStock(ctx context.Context, items []LineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, it := range items {
		if p, ok := c.products[it.ProductID]; ok {
			p.Stock += it.Quantity
		}
	}
	return nil
}
