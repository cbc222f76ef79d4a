package index

import (
	"sort"
	"sync"
)

// Aggregate accumulates corpus-wide term frequencies for one indexing run.
// It is created by the run, handed to every worker and read once the
// workers are done. Merges are additions, so their order never matters.
type Aggregate struct {
	mu    sync.Mutex
	terms map[string]int
	docs  int
}

func NewAggregate() *Aggregate {
	return &Aggregate{
		terms: make(map[string]int),
	}
}

// Merge adds one document's counts. The lock covers only the map update.
func (a *Aggregate) Merge(terms map[string]int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for term, freq := range terms {
		a.terms[term] += freq
	}
	a.docs++
}

// Combine folds other into a. other must not be used concurrently.
func (a *Aggregate) Combine(other *Aggregate) {
	if other == nil || other == a {
		return
	}
	other.mu.Lock()
	terms := other.terms
	docs := other.docs
	other.mu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	for term, freq := range terms {
		a.terms[term] += freq
	}
	a.docs += docs
}

// Snapshot returns the aggregate sorted by term.
func (a *Aggregate) Snapshot() []TermEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	entries := make([]TermEntry, 0, len(a.terms))
	for term, freq := range a.terms {
		entries = append(entries, TermEntry{Term: term, Frequency: freq})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Len is the number of distinct terms.
func (a *Aggregate) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.terms)
}

// DocCount is the number of merged documents.
func (a *Aggregate) DocCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.docs
}
