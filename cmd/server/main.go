package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"stockpilot/internal/adapter/handler"
	"stockpilot/internal/adapter/storage"
	"stockpilot/internal/config"
	"stockpilot/internal/core/service"
	"stockpilot/internal/port"
	"stockpilot/internal/seed"
)

const queueSize = 1024

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw, closeGateway, err := openGateway(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s gateway: %v", cfg.Storage.Backend, err)
	}
	defer closeGateway()
	log.Printf("using %s storage backend", cfg.Storage.Backend)

	// Load state, seeding on first run and reconciling the inventory
	// so every (store, sku) pair has a record before anything reads it.
	store := service.NewStateStore(gw, seed.Dir{Path: cfg.SeedDir})
	if err := store.Load(ctx); err != nil {
		log.Fatalf("failed to load state: %v", err)
	}
	skus, stores := store.Catalog()
	log.Printf("loaded %d skus, %d stores", len(skus), len(stores))

	engine := service.NewEngine(store, queueSize)
	go engine.Run(ctx)

	if cfg.Simulator.Autostart {
		if err := engine.StartSimulator(cfg.Simulator.Interval()); err != nil {
			log.Fatalf("failed to start simulator: %v", err)
		}
		log.Println("demand simulator started")
	}

	httpHandler := handler.NewHTTPHandler(store, engine, cfg.Simulator.Interval())
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	engine.StopSimulator()
	log.Println("simulator stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	cancel()
	log.Println("engine stopped")
}

// openGateway builds the configured persistence gateway and returns a
// close function for its underlying connection.
func openGateway(ctx context.Context, cfg config.Config) (port.Gateway, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Storage.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		log.Println("connected to redis")
		return storage.NewRedisGateway(rdb, cfg.Namespace), func() { rdb.Close() }, nil

	case config.BackendSQL:
		db, err := sql.Open(cfg.Storage.SQL.Driver, cfg.Storage.SQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Printf("connected to %s database", cfg.Storage.SQL.Driver)
		gw, err := storage.NewSQLGateway(db, cfg.Namespace)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return gw, func() { db.Close() }, nil

	default:
		return storage.NewMemoryGateway(), func() {}, nil
	}
}
