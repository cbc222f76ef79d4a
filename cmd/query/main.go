package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	limit := flag.Int("limit", 0, "maximum number of documents to print (0 prints all)")
	scores := flag.Bool("scores", false, "print scores for a single-term query")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] term [term ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	plan := parser.FromTerms(flag.Args())
	if len(plan.Terms) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := normalizer.New(cfg.Indexer.Normalizer)
	if err != nil {
		slog.Error("invalid normalizer", "error", err)
		os.Exit(1)
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open term store", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := run(ctx, executor.New(st, n), cfg.Search.Display, plan.Terms, *limit, *scores); err != nil {
		slog.Error("query failed", "query", plan.RawQuery, "error", err)
		st.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, engine *executor.Engine, display config.DisplayConfig, terms []string, limit int, scores bool) error {
	if len(terms) == 1 && scores {
		ranked, err := engine.Score(ctx, terms[0])
		if err != nil {
			return err
		}
		for i, d := range ranked {
			if limit > 0 && i == limit {
				break
			}
			fmt.Printf("%s\t%.6f\n", executor.DisplayName(d.DocID, display), d.Score)
		}
		return nil
	}

	ids, err := engine.ScoreMany(ctx, terms)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if limit > 0 && i == limit {
			break
		}
		fmt.Println(executor.DisplayName(id, display))
	}
	return nil
}
