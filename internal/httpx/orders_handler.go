package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qlbh/storefront/internal/redisx"
	"github.com/qlbh/storefront/internal/session"
	"github.com/qlbh/storefront/internal/shop"
)

func (h *Handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Ledger.ListByCustomer(ctx, s.CustomerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Ledger.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	// Customers only see their own orders; hide existence of others'.
	if s.Role != session.RoleAdmin && o.CustomerID != s.CustomerID {
		writeError(w, &shop.NotFoundError{Kind: "order", ID: o.ID})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus serves the lifecycle state through the redis cache kept warm
// by the fulfillment projector, falling back to the ledger on a miss.
func (h *Handlers) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if cached, err := h.Redis.Get(ctx, key).Result(); err == nil && cached != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(cached))
			return
		}
	}

	o, err := h.Ledger.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	body, _ := json.Marshal(map[string]any{"status": o.Status})
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

func (h *Handlers) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Ledger.ListAll(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handlers) deliverOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Coord.MarkDelivered(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	h.emit(shop.EventOrderDelivered, o.ID, r.Header.Get("X-Request-Id"),
		shop.OrderDeliveredPayload{OrderID: o.ID})
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Coord.Cancel(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	h.emit(shop.EventOrderCancelled, o.ID, r.Header.Get("X-Request-Id"),
		shop.OrderCancelledPayload{OrderID: o.ID, Restored: o.Items})
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) cacheStatus(ctx context.Context, o shop.Order) {
	if h.Redis == nil {
		return
	}
	body, _ := json.Marshal(map[string]any{"status": o.Status})
	_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, o.ID), body, redisx.TTLStatusCache).Err()
}
