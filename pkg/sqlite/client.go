// Package sqlite opens the embedded pure-Go SQLite engine used as the default
// term store backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

type Client struct {
	DB  *sql.DB
	cfg config.StorageConfig
}

func New(cfg config.StorageConfig) (*Client, error) {
	if cfg.Path != memoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating sqlite directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// SQLite admits one writer at a time; a single pooled connection makes
	// concurrent writers queue in the pool instead of failing with SQLITE_BUSY.
	// An in-memory database also lives and dies with its connection.
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 || cfg.Path == memoryPath {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

// DSN builds a modernc.org/sqlite data source name with the pragmas the term
// store relies on.
func DSN(cfg config.StorageConfig) string {
	params := url.Values{}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	if cfg.Path != memoryPath {
		params.Add("_pragma", "journal_mode(WAL)")
		params.Add("_pragma", "synchronous(NORMAL)")
	}
	params.Set("_txlock", "immediate")

	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?" + params.Encode()
}

func (c *Client) Close() error {
	return c.DB.Close()
}
