package shop

import "context"

// Coordinator moves orders between lifecycle states on behalf of an
// administrator and reconciles stock accordingly. The ledger's Transition is
// the single legality gate, so terminal-state checks live in one place.
type Coordinator struct {
	Orders Ledger
	Stock  Catalog
}

// MarkDelivered confirms fulfillment of a pending order. No stock effect:
// the units were already decremented when the order was created.
func (c *Coordinator) MarkDelivered(ctx context.Context, orderID string) (Order, error) {
	return c.Orders.Transition(ctx, orderID, StatusDelivered)
}

// Cancel voids a pending order and puts every reserved unit back. Line items
// whose product has been deleted in the meantime are skipped by RestoreStock.
func (c *Coordinator) Cancel(ctx context.Context, orderID string) (Order, error) {
	o, err := c.Orders.Transition(ctx, orderID, StatusCancelled)
	if err != nil {
		return Order{}, err
	}
	if err := c.Stock.RestoreStock(ctx, o.Items); err != nil {
		return Order{}, err
	}
	return o, nil
}
