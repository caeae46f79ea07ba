package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"estateSocialAPI/internal/config"
	"estateSocialAPI/internal/metrics"
	"estateSocialAPI/internal/notification"
	"estateSocialAPI/internal/realtime"
	"estateSocialAPI/internal/store"
	"estateSocialAPI/middleware"

	_ "net/http/pprof"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	clerk.SetKey(cfg.ClerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st   store.Store
		ping func(ctx context.Context) error
		pool *pgxpool.Pool
	)

	switch cfg.StorageDriver {
	case config.DriverMemory:
		log.Println("Using in-memory storage; data is lost on restart")
		st = store.NewMemory()
		ping = func(ctx context.Context) error { return nil }
	default:
		var err error
		pool, err = connectDB(ctx, cfg)
		if err != nil {
			log.Fatal("Failed to connect to database: ", err)
		}
		defer func() {
			log.Println("Closing database connection pool...")
			pool.Close()
		}()

		pg := store.NewPostgres(pool)
		if cfg.DBAutoMigrate {
			migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := pg.Migrate(migrateCtx)
			cancel()
			if err != nil {
				log.Fatal("Failed to migrate database: ", err)
			}
			log.Println("Database schema is up to date")
		}
		st = pg
		ping = pool.Ping
	}

	metrics.Register(prometheus.DefaultRegisterer)
	middleware.InitPrometheus(prometheus.DefaultRegisterer)

	hub := realtime.NewHub()
	go hub.Run(ctx)

	a := newApp(cfg, st, hub, middleware.ClerkVerifier, ping)
	defer a.dispatcher.Stop()

	fcmService, err := notification.NewFCMService(ctx, cfg.FCMCredentialsFile)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		a.dispatcher.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	go a.limiter.Cleanup(ctx)

	server := http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func connectDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("Successfully connected to Postgres")
	return pool, nil
}
