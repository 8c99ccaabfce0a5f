package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rohis/api/internal/app"
	"rohis/api/internal/archive"
	"rohis/api/internal/authpw"
	"rohis/api/internal/config"
	"rohis/api/internal/images"
	"rohis/api/internal/prayer"
	"rohis/api/internal/search"
	"rohis/api/internal/session"
	"rohis/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	dataStore, err := store.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer dataStore.Close()

	sessionStore, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer sessionStore.Close()

	service := app.New(cfg, dataStore, sessionStore, authpw.NewService(dataStore))

	activitiesSnapshot := func(ctx context.Context) (map[string]store.Activity, error) {
		coll, err := dataStore.Snapshot(ctx, store.ActivitiesPath)
		if err != nil {
			return nil, err
		}
		return store.Decode[store.Activity](coll)
	}
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewScanner(activitiesSnapshot))
	searchService.Bootstrap(ctx)
	service.UseSearch(searchService)

	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		log.Fatalf("failed to create archive dir: %v", err)
	}
	service.UseArchive(archive.New(cfg.ArchiveDir))

	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	stopWatcher, err := service.StartMotivationWatcher(watchCtx)
	if err != nil {
		log.Fatalf("motivation watcher failed: %v", err)
	}
	defer stopWatcher()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	httpServer.UsePrayer(prayer.NewService(cfg.PrayerCity, cfg.PrayerCountry, dataStore.Client()))

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		uploader, err := images.NewService(
			cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.MinioBucket, cfg.MinioPublicURL, cfg.MinioUseSSL,
		)
		if err != nil {
			log.Fatalf("object store connection failed: %v", err)
		}
		if err := uploader.EnsureBucket(ctx); err != nil {
			log.Fatalf("object store bucket setup failed: %v", err)
		}
		httpServer.UseUploader(uploader)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Rohis API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
