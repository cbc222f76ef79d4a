package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/consumer"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "driver", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := normalizer.New(cfg.Indexer.Normalizer)
	if err != nil {
		slog.Error("invalid normalizer", "error", err)
		os.Exit(1)
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open term store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port, nil)
		metricsServer.Start()
		defer metricsServer.Shutdown(context.Background())
	}

	checker := health.NewChecker(0)
	checker.Register("term_store", health.Ping(st.Ping, true))

	opts := []handler.Option{handler.WithMetrics(m), handler.WithCatalog(st)}
	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			checker.Register("redis", health.Ping(func(context.Context) error { return err }, false))
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			opts = append(opts, handler.WithCache(queryCache))
			checker.Register("redis", health.Ping(redisClient.Ping, false))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	} else {
		checker.Register("redis", health.Disabled())
	}

	if cfg.Kafka.Enabled && queryCache != nil {
		kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, consumer.HandleIndexCompleted(queryCache))
		defer kafkaConsumer.Close()
		events := consumer.New(kafkaConsumer)
		go func() {
			if err := events.Start(ctx); err != nil {
				slog.Error("index event consumer error", "error", err)
			}
		}()
		slog.Info("cache invalidation on index events", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	h := handler.New(executor.New(st, n), cfg.Search, opts...)
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m, handler.Routes()...),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
