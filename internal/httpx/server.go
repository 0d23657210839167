package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/qlbh/storefront/internal/kafka"
	"github.com/qlbh/storefront/internal/session"
	"github.com/qlbh/storefront/internal/shop"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Handlers wires the storefront core to the HTTP surface. Producers are keyed
// by event type; a nil map disables publishing (tests run without kafka).
type Handlers struct {
	Catalog   shop.Catalog
	Ledger    shop.Ledger
	Coord     *shop.Coordinator
	Sessions  *session.Manager
	Redis     *redis.Client
	Producers map[string]*kafkax.Producer
	Service   string
}

func (h *Handlers) Register(r *chi.Mux) {
	r.Post("/login", h.login)
	r.Post("/register", h.login) // identity is external; both just issue a session

	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Post("/logout", h.logout)

		r.Get("/cart", h.getCart)
		r.Post("/cart/items", h.addCartItem)
		r.Put("/cart/items/{id}", h.setCartQuantity)
		r.Delete("/cart/items/{id}", h.removeCartItem)
		r.Post("/cart/checkout", h.checkout)

		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/status", h.getOrderStatus)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)

			r.Post("/products", h.createProduct)
			r.Put("/products/{id}", h.updateProduct)
			r.Delete("/products/{id}", h.deleteProduct)
			r.Post("/products/{id}/stock", h.adjustStock)

			r.Get("/admin/orders", h.listAllOrders)
			r.Post("/admin/orders/{id}/deliver", h.deliverOrder)
			r.Post("/admin/orders/{id}/cancel", h.cancelOrder)
		})
	})
}

// emit publishes a v1 envelope for the order, partition-keyed by order id.
func (h *Handlers) emit(eventType, orderID, traceID string, payload any) {
	p, ok := h.Producers[eventType]
	if !ok {
		return
	}
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(shop.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
