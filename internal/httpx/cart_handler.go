package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qlbh/storefront/internal/redisx"
	"github.com/qlbh/storefront/internal/shop"
)

type cartView struct {
	Items      []shop.LineItem `json:"items"`
	TotalCents int             `json:"total_cents"`
}

// getCart reconciles against live stock first, so the view never shows an
// over-subscribed line, then totals at live prices.
func (h *Handlers) getCart(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	total, err := s.Cart.Total(ctx, h.Catalog)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView{Items: s.Cart.Items(), TotalCents: total})
}

type cartItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handlers) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	s := sessionFrom(r)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.Cart.AddItem(ctx, h.Catalog, req.ProductID, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Cart.Items()})
}

type setQuantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *Handlers) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	s := sessionFrom(r)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.Cart.SetQuantity(ctx, h.Catalog, chi.URLParam(r, "id"), req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Cart.Items()})
}

func (h *Handlers) removeCartItem(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Cart.RemoveItem(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type checkoutResp struct {
	Order      shop.Order `json:"order"`
	Idempotent bool       `json:"idempotent"`
}

// checkout turns the cart into a pending order. An optional Idempotency-Key
// header short-circuits retries via redis: the same key returns the order the
// first attempt produced instead of booking twice.
func (h *Handlers) checkout(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idemKey := ""
	if k := r.Header.Get("Idempotency-Key"); k != "" && h.Redis != nil {
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, s.CustomerID, k)
		if orderID, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && orderID != "" {
			if o, err := h.Ledger.Get(ctx, orderID); err == nil {
				writeJSON(w, http.StatusOK, checkoutResp{Order: o, Idempotent: true})
				return
			}
		}
	}

	order, err := s.Cart.Checkout(ctx, h.Catalog, h.Ledger, s.CustomerID)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Redis != nil {
		if idemKey != "" {
			_ = h.Redis.Set(ctx, idemKey, order.ID, redisx.TTLIdempotency).Err()
		}
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
		_ = h.Redis.Set(ctx, statusKey, `{"status":"pending"}`, redisx.TTLStatusCache).Err()
	}

	h.emit(shop.EventOrderCreated, order.ID, r.Header.Get("X-Request-Id"), shop.OrderCreatedPayload{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Items:      order.Items,
		TotalCents: order.TotalCents,
	})

	writeJSON(w, http.StatusCreated, checkoutResp{Order: order})
}
