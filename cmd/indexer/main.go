package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/sqlite"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	root := flag.String("root", "", "directory to index (overrides indexer.root)")
	legacy := flag.String("import-legacy", "", "copy a table-per-document sqlite database into the store and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *root != "" {
		cfg.Indexer.Root = *root
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open term store", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if *legacy != "" {
		if err := importLegacy(ctx, st, *legacy); err != nil {
			slog.Error("legacy import failed", "source", *legacy, "error", err)
			st.Close()
			os.Exit(1)
		}
		return
	}

	var opts []indexer.Option
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Port, nil)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		opts = append(opts, indexer.WithMetrics(metrics.New()))
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		opts = append(opts, indexer.WithPublisher(producer))
		slog.Info("publishing index events", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	engine, err := indexer.NewEngine(cfg.Indexer, st, opts...)
	if err != nil {
		slog.Error("failed to create indexer", "error", err)
		st.Close()
		os.Exit(1)
	}

	slog.Info("starting indexing run",
		"root", cfg.Indexer.Root,
		"driver", cfg.Storage.Driver,
		"normalizer", cfg.Indexer.Normalizer,
		"workers", cfg.Indexer.Workers,
	)
	report, err := engine.Run(ctx, cfg.Indexer.Root)
	if report != nil {
		report.Log(slog.Default())
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("indexing interrupted", "error", err)
		} else {
			slog.Error("indexing failed", "error", err)
		}
		st.Close()
		os.Exit(1)
	}
}

func importLegacy(ctx context.Context, st *store.SQLStore, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening legacy database: %w", err)
	}
	src, err := sqlite.New(config.StorageConfig{Path: path, MaxOpenConns: 1})
	if err != nil {
		return fmt.Errorf("opening legacy database: %w", err)
	}
	defer src.Close()

	report, err := store.ImportLegacy(ctx, st, src.DB)
	if err != nil {
		return err
	}
	slog.Info("legacy import complete",
		"source", path,
		"documents", report.Documents,
		"terms", report.Terms,
		"skipped", len(report.Skipped),
	)
	for _, table := range report.Skipped {
		slog.Warn("legacy document skipped", "table", table)
	}
	return nil
}
