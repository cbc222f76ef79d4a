// Package proto defines the message types exchanged between the indexer and
// the query service. They travel as JSON over Kafka and HTTP.
package proto

// IndexCompleted is published once per indexing run, after the corpus
// aggregate has been written. Consumers treat it as "the term store changed".
type IndexCompleted struct {
	RunID       string   `json:"run_id"`
	Root        string   `json:"root"`
	Discovered  int      `json:"discovered"`
	Indexed     int      `json:"indexed"`
	Failed      []string `json:"failed,omitempty"`
	Terms       int      `json:"terms"`
	CompletedAt int64    `json:"completed_at"`
}

// SearchHit is one ranked document. Score is omitted for conjunctive
// queries, which rank documents without exposing the combined score.
type SearchHit struct {
	DocID   string   `json:"doc_id"`
	Display string   `json:"display"`
	Score   *float64 `json:"score,omitempty"`
}

// SearchResponse is the body of a search reply.
type SearchResponse struct {
	Query     string      `json:"query"`
	Terms     []string    `json:"terms"`
	TotalHits int         `json:"total_hits"`
	Results   []SearchHit `json:"results"`
	Cached    bool        `json:"cached"`
	LatencyMs int64       `json:"latency_ms"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
