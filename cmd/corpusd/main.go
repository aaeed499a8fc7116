// Command corpusd serves the corpus ingestion API over HTTP: document
// upload and URL ingestion, ledger listing, deletion by source path,
// and manual index reset.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	corpus "github.com/nevindra/corpus"
	"github.com/nevindra/corpus/ingest"
	"github.com/nevindra/corpus/internal/config"
	"github.com/nevindra/corpus/observer"
	"github.com/nevindra/corpus/provider/openaicompat"
	redisstore "github.com/nevindra/corpus/store/redis"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.Load(os.Getenv("CORPUS_CONFIG"))
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if cfg.Observer.Enabled {
		shutdown, err := observer.Init(ctx, "corpusd")
		if err != nil {
			logger.Error("observer init failed", "error", err)
			os.Exit(1)
		}
		defer shutdown(context.Background()) //nolint:errcheck
	}

	session := redisstore.NewSession(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	defer session.Close()

	mgr := corpus.New(
		redisstore.NewLedger(session, logger),
		redisstore.NewVectors(session),
		redisstore.NewIndex(session, logger, redisstore.WithDimensions(cfg.Embedding.Dimensions)),
		openaicompat.NewEmbedding(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimensions),
		ingest.NewResolver(),
		ingest.DefaultSplitter,
		corpus.WithLogger(logger),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newServer(mgr, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
