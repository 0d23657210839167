package shop

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres-backed implementations of Catalog and Ledger. Stock moves under
// per-row FOR UPDATE locks inside a single transaction, so a multi-product
// reservation either commits completely or rolls back without a trace.

type PGCatalog struct{ DB *pgxpool.Pool }

func (c *PGCatalog) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := validateInput(in); err != nil {
		return Product{}, err
	}
	p := Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		OwnerID:     in.OwnerID,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := c.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, price_cents, stock, owner_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.OwnerID, p.CreatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *PGCatalog) Update(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	if err := validatePatch(patch); err != nil {
		return Product{}, err
	}
	tx, err := c.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := scanProduct(tx.QueryRow(ctx, `
		SELECT id, name, description, price_cents, stock, owner_id, created_at
		FROM products WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &NotFoundError{Kind: "product", ID: id}
		}
		return Product{}, err
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
	if _, err := tx.Exec(ctx, `
		UPDATE products SET name=$2, description=$3, price_cents=$4, stock=$5 WHERE id=$1`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock); err != nil {
		return Product{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *PGCatalog) Delete(ctx context.Context, id string) error {
	ct, err := c.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return &NotFoundError{Kind: "product", ID: id}
	}
	return nil
}

func (c *PGCatalog) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(c.DB.QueryRow(ctx, `
		SELECT id, name, description, price_cents, stock, owner_id, created_at
		FROM products WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &NotFoundError{Kind: "product", ID: id}
		}
		return Product{}, err
	}
	return p, nil
}

func (c *PGCatalog) List(ctx context.Context) ([]Product, error) {
	rows, err := c.DB.Query(ctx, `
		SELECT id, name, description, price_cents, stock, owner_id, created_at
		FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *PGCatalog) AdjustStock(ctx context.Context, id string, delta int) (Product, error) {
	tx, err := c.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stock int
	if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &NotFoundError{Kind: "product", ID: id}
		}
		return Product{}, err
	}
	if stock+delta < 0 {
		return Product{}, &InsufficientStockError{ProductID: id, Requested: -delta, Available: stock}
	}
	if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id=$1`, id, delta); err != nil {
		return Product{}, err
	}
	p, err := scanProduct(tx.QueryRow(ctx, `
		SELECT id, name, description, price_cents, stock, owner_id, created_at
		FROM products WHERE id=$1`, id))
	if err != nil {
		return Product{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *PGCatalog) ReserveStock(ctx context.Context, items []LineItem) error {
	tx, err := c.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := reserveInTx(ctx, tx, items); err != nil {
		return err // rollback via defer
	}
	return tx.Commit(ctx)
}

func (c *PGCatalog) RestoreStock(ctx context.Context, items []LineItem) error {
	tx, err := c.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, it := range items {
		// Products deleted since the order was created match no row; the
		// update is a no-op for them, nothing left to restore into.
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id=$1`,
			it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// reserveInTx locks every product row, validates every line, then decrements.
// Any shortfall aborts before a single counter has moved.
func reserveInTx(ctx context.Context, tx pgx.Tx, items []LineItem) error {
	for _, it := range items {
		if it.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		var stock int
		if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`,
			it.ProductID).Scan(&stock); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &NotFoundError{Kind: "product", ID: it.ProductID}
			}
			return err
		}
		if stock < it.Quantity {
			return &InsufficientStockError{ProductID: it.ProductID, Requested: it.Quantity, Available: stock}
		}
	}
	for _, it := range items {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id=$1`,
			it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

type PGLedger struct{ DB *pgxpool.Pool }

func (l *PGLedger) Create(ctx context.Context, customerID string, items []LineItem) (Order, error) {
	if len(items) == 0 {
		return Order{}, &EmptyCartError{CustomerID: customerID}
	}
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Price from the products table, never from the client.
	total := 0
	for _, it := range items {
		var price int
		if err := tx.QueryRow(ctx, `SELECT price_cents FROM products WHERE id=$1`,
			it.ProductID).Scan(&price); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Order{}, &NotFoundError{Kind: "product", ID: it.ProductID}
			}
			return Order{}, err
		}
		total += price * it.Quantity
	}

	if err := reserveInTx(ctx, tx, items); err != nil {
		return Order{}, err
	}

	o := Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Items:      append([]LineItem(nil), items...),
		Status:     StatusPending,
		TotalCents: total,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, customer_id, status, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		o.ID, o.CustomerID, string(o.Status), o.TotalCents, o.CreatedAt); err != nil {
		return Order{}, err
	}
	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty)
			VALUES ($1,$2,$3)`, o.ID, it.ProductID, it.Quantity); err != nil {
			return Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (l *PGLedger) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	var status string
	err := l.DB.QueryRow(ctx, `
		SELECT id, customer_id, status, total_cents, created_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &status, &o.TotalCents, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, &NotFoundError{Kind: "order", ID: id}
		}
		return Order{}, err
	}
	o.Status = Status(status)
	o.Items, err = l.items(ctx, id)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (l *PGLedger) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return l.list(ctx, `
		SELECT id, customer_id, status, total_cents, created_at
		FROM orders WHERE customer_id=$1 ORDER BY created_at, id`, customerID)
}

func (l *PGLedger) ListAll(ctx context.Context) ([]Order, error) {
	return l.list(ctx, `
		SELECT id, customer_id, status, total_cents, created_at
		FROM orders ORDER BY created_at, id`)
}

func (l *PGLedger) Transition(ctx context.Context, id string, to Status) (Order, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, &NotFoundError{Kind: "order", ID: id}
		}
		return Order{}, err
	}
	if !CanTransition(Status(status), to) {
		return Order{}, &InvalidTransitionError{OrderID: id, From: Status(status), To: to}
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, string(to)); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return l.Get(ctx, id)
}

func (l *PGLedger) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := l.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var status string
		if err := rows.Scan(&o.ID, &o.CustomerID, &status, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = Status(status)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = l.items(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *PGLedger) items(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := l.DB.Query(ctx, `
		SELECT product_id, qty FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type productRow interface {
	Scan(dest ...any) error
}

func scanProduct(row productRow) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.OwnerID, &p.CreatedAt)
	return p, err
}
