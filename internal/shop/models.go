package shop

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductInput is the payload for Catalog.Create.
type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int    `json:"price_cents"`
	Stock       int    `json:"stock"`
	OwnerID     string `json:"-"`
}

// ProductPatch carries partial updates; nil fields are left untouched.
// Stock here is an absolute set (administrator correction), not a delta —
// sales and refunds go through AdjustStock.
type ProductPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int    `json:"price_cents"`
	Stock       *int    `json:"stock"`
}

type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	Items      []LineItem `json:"items"`
	Status     Status     `json:"status"` // see status.go
	TotalCents int        `json:"total_cents"`
	CreatedAt  time.Time  `json:"created_at"`
}
