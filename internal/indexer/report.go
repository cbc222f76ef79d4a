package indexer

import (
	"log/slog"
	"time"
)

// Report summarises one indexing run. Failed lists, sorted, the documents
// whose term table could not be persisted; unreadable files only count
// towards Skipped. Aggregated counts the documents folded into the corpus
// terms, failed ones included.
type Report struct {
	RunID      string        `json:"run_id"`
	Root       string        `json:"root"`
	Discovered int           `json:"discovered"`
	Indexed    int           `json:"indexed"`
	Skipped    int           `json:"skipped"`
	Failed     []string      `json:"failed"`
	Aggregated int           `json:"aggregated"`
	Terms      int           `json:"terms"`
	Duration   time.Duration `json:"duration"`
}

// Log writes the report as a single record, followed by one warning per
// failed document.
func (r *Report) Log(logger *slog.Logger) {
	logger.Info("indexing complete",
		"run_id", r.RunID,
		"root", r.Root,
		"discovered", r.Discovered,
		"indexed", r.Indexed,
		"skipped", r.Skipped,
		"failed", len(r.Failed),
		"aggregated", r.Aggregated,
		"terms", r.Terms,
		"duration", r.Duration,
	)
	for _, path := range r.Failed {
		logger.Warn("document failed to persist", "run_id", r.RunID, "document", path)
	}
}
