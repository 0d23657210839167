package shop

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger owns orders once created. Orders are append-only: line items are a
// value snapshot taken at checkout and are never rewritten, status moves only
// through Transition.
type Ledger interface {
	// Create re-validates every line against live stock (independently of the
	// cart's own reconcile, to defend against staleness in between), then
	// decrements stock all-or-nothing and appends a pending order. Totals are
	// priced from the catalog, never trusted from the caller.
	Create(ctx context.Context, customerID string, items []LineItem) (Order, error)

	Get(ctx context.Context, id string) (Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)

	// Transition atomically checks legality against the state machine and
	// applies the new status, returning the order as of after the change.
	// Illegal moves fail with InvalidTransitionError, also from terminal
	// states: re-cancelling a cancelled order is an error, not a no-op.
	Transition(ctx context.Context, id string, to Status) (Order, error)
}

type MemLedger struct {
	mu      sync.RWMutex
	catalog Catalog
	orders  map[string]*Order
}

func NewMemLedger(catalog Catalog) *MemLedger {
	return &MemLedger{catalog: catalog, orders: make(map[string]*Order)}
}

func (l *MemLedger) Create(ctx context.Context, customerID string, items []LineItem) (Order, error) {
	if len(items) == 0 {
		return Order{}, &EmptyCartError{CustomerID: customerID}
	}

	// Price the snapshot before reserving; Get also surfaces deleted products
	// with a proper NotFoundError instead of a reservation failure.
	total := 0
	for _, it := range items {
		p, err := l.catalog.Get(ctx, it.ProductID)
		if err != nil {
			return Order{}, err
		}
		total += p.PriceCents * it.Quantity
	}

	// All-or-nothing: on any shortfall no counter has moved.
	if err := l.catalog.ReserveStock(ctx, items); err != nil {
		return Order{}, err
	}

	snapshot := make([]LineItem, len(items))
	copy(snapshot, items)

	o := &Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Items:      snapshot,
		Status:     StatusPending,
		TotalCents: total,
		CreatedAt:  time.Now().UTC(),
	}

	l.mu.Lock()
	l.orders[o.ID] = o
	l.mu.Unlock()
	return *o, nil
}

func (l *MemLedger) Get(ctx context.Context, id string) (Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.orders[id]
	if !ok {
		return Order{}, &NotFoundError{Kind: "order", ID: id}
	}
	return copyOrder(o), nil
}

func (l *MemLedger) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Order
	for _, o := range l.orders {
		if o.CustomerID == customerID {
			out = append(out, copyOrder(o))
		}
	}
	sortOrders(out)
	return out, nil
}

func (l *MemLedger) ListAll(ctx context.Context) ([]Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, copyOrder(o))
	}
	sortOrders(out)
	return out, nil
}

func (l *MemLedger) Transition(ctx context.Context, id string, to Status) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[id]
	if !ok {
		return Order{}, &NotFoundError{Kind: "order", ID: id}
	}
	if !CanTransition(o.Status, to) {
		return Order{}, &InvalidTransitionError{OrderID: id, From: o.Status, To: to}
	}
	o.Status = to
	return copyOrder(o), nil
}

func copyOrder(o *Order) Order {
	out := *o
	out.Items = make([]LineItem, len(o.Items))
	copy(out.Items, o.Items)
	return out
}

func sortOrders(orders []Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
