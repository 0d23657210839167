package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qlbh/storefront/internal/config"
	"github.com/qlbh/storefront/internal/httpx"
	kafkax "github.com/qlbh/storefront/internal/kafka"
	"github.com/qlbh/storefront/internal/postgres"
	"github.com/qlbh/storefront/internal/redisx"
	"github.com/qlbh/storefront/internal/session"
	"github.com/qlbh/storefront/internal/shop"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores: in-memory by default, postgres when configured.
	var (
		catalog shop.Catalog
		ledger  shop.Ledger
	)
	switch cfg.StoreBackend {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		catalog = &shop.PGCatalog{DB: db}
		ledger = &shop.PGLedger{DB: db}
	case "memory":
		mem := shop.NewMemCatalog()
		catalog = mem
		ledger = shop.NewMemLedger(mem)
	default:
		log.Fatalf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	producers := map[string]*kafkax.Producer{
		shop.EventOrderCreated:   kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderCreated, 1024),
		shop.EventOrderDelivered: kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderDelivered, 1024),
		shop.EventOrderCancelled: kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderCancelled, 1024),
	}
	for _, p := range producers {
		p.Start(ctx)
	}

	// Handlers
	router := httpx.NewRouter()
	h := &httpx.Handlers{
		Catalog:   catalog,
		Ledger:    ledger,
		Coord:     &shop.Coordinator{Orders: ledger, Stock: catalog},
		Sessions:  session.NewManager(),
		Redis:     rdb,
		Producers: producers,
		Service:   cfg.ServiceName,
	}
	h.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s (store=%s)", cfg.HTTPAddr, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // close inbox -> flush & close writer
	}
	cancel() // stop producer loops
	for _, p := range producers {
		p.WaitClosed() // drain
	}
}
