package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dineahead/internal/config"
	"dineahead/internal/notify"
	"dineahead/internal/server"
	"dineahead/internal/store"
	"dineahead/internal/yelp"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.YelpAPIKey == "" || cfg.YelpAPIKey == yelp.PlaceholderKey {
		log.Warn("YELP_API_KEY is not configured; search requests will fail until it is set")
	}

	// 2. Initialize the store
	st, err := store.New(cfg.DBPath, log)
	if err != nil {
		log.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// 3. Transport and notifications
	client := yelp.NewClient(cfg.YelpAPIKey, log)
	proxy := yelp.NewProxy(cfg.YelpAPIKey, "", log)

	notifier, err := notify.New(cfg.TelegramBotToken, cfg.TelegramChatID, log)
	if err != nil {
		log.Error("failed to initialize telegram notifier", "error", err)
		os.Exit(1)
	}

	// 4. HTTP server
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.New(server.Options{
			Searcher:    client,
			Store:       st,
			Proxy:       proxy,
			Notifier:    notifier,
			BaseURL:     cfg.BaseURL,
			ShareSecret: cfg.ShareSecret,
			Logger:      log,
		}).Router(),
	}

	go func() {
		log.Info("dineahead listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server exiting")
}
