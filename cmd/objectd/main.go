// objectd is the object-store service: content-addressed blobs, trees and
// commits over HTTP.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitstore/internal/api"
	"gitstore/internal/config"
	"gitstore/internal/httpx"
	"gitstore/internal/objectstore"
	"gitstore/internal/storage/blobstore"
	"gitstore/internal/storage/metastore"
)

func main() {
	cfgPath := os.Getenv("GITSTORE_CONFIG")
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("objectd: %v", err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}

	var blobs blobstore.Store
	switch cfg.Blobstore.Backend {
	case "fs", "":
		if err := os.MkdirAll(cfg.Blobstore.Path, 0o755); err != nil {
			log.Fatalf("objectd: blobstore dir: %v", err)
		}
		blobs = blobstore.NewFS(cfg.Blobstore.Path, cfg.Blobstore.Compress)
	case "bolt":
		b, err := blobstore.NewBolt(cfg.Blobstore.Path)
		if err != nil {
			log.Fatalf("objectd: open bolt blobstore: %v", err)
		}
		defer b.Close()
		blobs = b
	default:
		log.Fatalf("objectd: unknown blobstore backend %q", cfg.Blobstore.Backend)
	}

	meta, err := metastore.NewSQLiteStore(cfg.MetaDB)
	if err != nil {
		log.Fatalf("objectd: open metastore: %v", err)
	}

	var cache *objectstore.Cache
	if cfg.Redis.Addr != "" {
		cache, err = objectstore.NewCache(objectstore.CacheConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			Database: cfg.Redis.Database,
		})
		if err != nil {
			log.Fatalf("objectd: %v", err)
		}
		defer cache.Close()
	}

	store := objectstore.New(blobs, meta, cache)
	handler := httpx.Chain(api.ObjectMux(store),
		httpx.Recover(), httpx.RequestID(), httpx.Logger(), httpx.CORS(), httpx.Gzip())

	serve(cfg.Listen, handler, "objectd")
}

func serve(addr string, handler http.Handler, name string) {
	srv := &http.Server{Addr: addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("%s listening on %s", name, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("%s: %v", name, err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("%s shutdown: %v", name, err)
	}
}
