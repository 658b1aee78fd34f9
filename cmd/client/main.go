package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"marletmeets/client/internal/api"
	"marletmeets/client/internal/bus"
	"marletmeets/client/internal/config"
	"marletmeets/client/internal/dashboard"
	"marletmeets/client/internal/geo"
	internalhttp "marletmeets/client/internal/http"
	"marletmeets/client/internal/session"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var records session.RecordStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}()
		records = session.NewRedisStore(redisClient)
	} else {
		records = session.NewFileStore(cfg.SessionFile)
	}

	store := session.New(records)
	backend := api.New(cfg.APIBaseURL, cfg.RequestTimeout, store)
	store.SetAuth(backend)
	store.Restore(ctx)

	geocoder := geo.NewGeocoder(cfg.GeocoderBaseURL, cfg.GeocoderAPIKey, cfg.RequestTimeout)
	geocoder.Init(ctx)
	resolver := geo.NewResolver(geocoder, cfg.GeocodeConcurrency)

	broadcasts := bus.New()
	orchestrator := dashboard.New(backend, resolver, broadcasts, cfg.RefreshInterval)
	manager := dashboard.NewManager(orchestrator, store)
	go manager.Run(ctx)

	server := internalhttp.NewServer(cfg, store, backend, manager, broadcasts)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("marletmeets client listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
