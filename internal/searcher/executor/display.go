package executor

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
)

// DisplayName strips the configured cosmetic markers from a document
// identifier. It is only for presentation; lookups always use the full
// identifier.
func DisplayName(docID string, cfg config.DisplayConfig) string {
	name := docID
	if cfg.StripPrefix != "" {
		name = strings.TrimPrefix(name, cfg.StripPrefix)
	}
	if cfg.StripSuffix != "" {
		name = strings.TrimSuffix(name, cfg.StripSuffix)
	}
	if name == "" {
		return docID
	}
	return name
}
