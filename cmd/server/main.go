package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/roas-attribution/internal/api"
	"github.com/ignite/roas-attribution/internal/attribution"
	"github.com/ignite/roas-attribution/internal/clickfunnels"
	"github.com/ignite/roas-attribution/internal/config"
	"github.com/ignite/roas-attribution/internal/eventstore"
	"github.com/ignite/roas-attribution/internal/facebook"
	"github.com/ignite/roas-attribution/internal/keap"
	"github.com/ignite/roas-attribution/internal/pkg/distlock"
	"github.com/ignite/roas-attribution/internal/pkg/logger"
	"github.com/ignite/roas-attribution/internal/storage"
	"github.com/ignite/roas-attribution/internal/warehouse"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", cfg.Server.Port)

	// Document store (Postgres-backed)
	if cfg.Database.URL == "" {
		log.Fatal("No database configured: set DATABASE_URL or database.url")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Database ping failed: %v", err)
	}
	pingCancel()
	log.Println("[store] document store connected")

	store := eventstore.NewPostgres(db)

	// Redis ad-metadata cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(cacheCtx).Err(); err != nil {
		log.Printf("[cache] redis unreachable, ad lookups go straight to the platform: %v", err)
	} else {
		log.Println("[cache] redis ad cache connected")
	}
	cacheCancel()

	// Platform clients
	keapClient := keap.NewClient(keap.Config{
		BaseURL:      cfg.Keap.BaseURL,
		HookRelayURL: cfg.Keap.HookRelayURL,
		TimeoutSecs:  cfg.Keap.TimeoutSeconds,
	}, store)

	fbClient := facebook.NewClient(facebook.Config{
		BaseURL:     cfg.Facebook.BaseURL,
		APIVersion:  cfg.Facebook.APIVersion,
		AccessToken: cfg.Facebook.AccessToken,
		TimeoutSecs: cfg.Facebook.TimeoutSeconds,
	})
	resolver := facebook.NewResolver(fbClient, facebook.NewAdCache(rdb), cfg.Facebook.Concurrency)

	funnel := clickfunnels.New(store)

	svc := attribution.NewService(keapClient, funnel, store, resolver, cfg.Attribution.CustomerWorkers)

	handlers := api.NewHandlers(svc)
	handlers.SetHookManager(keapClient)
	handlers.SetLockFactory(func(key string) distlock.DistLock {
		return distlock.NewLock(rdb, db, key, 2*time.Minute)
	})

	// Optional report sinks
	if cfg.Archive.Enabled && cfg.Archive.S3Bucket != "" {
		archiver, err := storage.NewArchiver(context.Background(),
			cfg.Archive.S3Bucket, cfg.Archive.AWSRegion, cfg.Archive.AWSProfile)
		if err != nil {
			log.Printf("[archive] S3 archiver unavailable: %v", err)
		} else {
			handlers.SetArchive(archiver)
			log.Printf("[archive] reports archived to s3://%s", cfg.Archive.S3Bucket)
		}
	}

	if cfg.Warehouse.Enabled {
		exporter, err := warehouse.New(warehouse.Config{
			Account:   cfg.Warehouse.Account,
			User:      cfg.Warehouse.User,
			Password:  cfg.Warehouse.Password,
			Database:  cfg.Warehouse.Database,
			Schema:    cfg.Warehouse.Schema,
			Warehouse: cfg.Warehouse.Warehouse,
		})
		if err != nil {
			log.Printf("[warehouse] exporter unavailable: %v", err)
		} else {
			defer exporter.Close()
			handlers.SetExporter(exporter)
			log.Println("[warehouse] attribution rows exported to Snowflake")
		}
	}

	server := api.NewServer(cfg.Server, handlers)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
