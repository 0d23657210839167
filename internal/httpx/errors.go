package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/qlbh/storefront/internal/shop"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates the domain error taxonomy into status codes and keeps
// the offending identifier in the body so clients can show which product ran
// dry or which order refused the move.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *shop.ValidationError
		nf *shop.NotFoundError
		is *shop.InsufficientStockError
		it *shop.InvalidTransitionError
		ec *shop.EmptyCartError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": ve.Error(), "field": ve.Field,
		})
	case errors.As(err, &ec):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ec.Error()})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": nf.Error(), "id": nf.ID,
		})
	case errors.As(err, &is):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      is.Error(),
			"product_id": is.ProductID,
			"requested":  is.Requested,
			"available":  is.Available,
		})
	case errors.As(err, &it):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": it.Error(), "order_id": it.OrderID,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
