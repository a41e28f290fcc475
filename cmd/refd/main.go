// refd is the reference service: it maps mutable names (the main pointer,
// tags) to immutable commit hashes, gated by repository ownership.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitstore/internal/access"
	"gitstore/internal/api"
	"gitstore/internal/config"
	"gitstore/internal/httpx"
	"gitstore/internal/identity"
	"gitstore/internal/refs"
	"gitstore/internal/storage/refstore"
)

func main() {
	cfgPath := os.Getenv("GITSTORE_CONFIG")
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("refd: %v", err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8081"
	}
	if cfg.ObjectStoreURL == "" || cfg.RegistryURL == "" || cfg.IdentityURL == "" {
		log.Fatalf("refd: object_store_url, registry_url and identity_url are required")
	}

	store, err := refstore.NewSQLiteStore(cfg.RefDB)
	if err != nil {
		log.Fatalf("refd: open refstore: %v", err)
	}

	gate := access.NewGate(access.NewHTTPRegistry(cfg.RegistryURL, cfg.RequestTimeout.Std()))
	checker := refs.NewHTTPChecker(cfg.ObjectStoreURL, cfg.RequestTimeout.Std())
	verifier := identity.NewHTTPVerifier(cfg.IdentityURL, cfg.RequestTimeout.Std())
	coord := refs.NewCoordinator(gate, checker, store)

	handler := httpx.Chain(api.RefMux(coord, verifier),
		httpx.Recover(), httpx.RequestID(), httpx.Logger(), httpx.CORS(), httpx.Gzip())

	srv := &http.Server{Addr: cfg.Listen, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("refd listening on %s", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("refd: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("refd shutdown: %v", err)
	}
}
