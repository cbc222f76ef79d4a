package index

import "sort"

// Document is the transient per-file result of an indexing pass. Only its
// registry row and term table outlive the run.
type Document struct {
	Path  string
	Terms map[string]int
}

func NewDocument(path string) *Document {
	return &Document{
		Path:  path,
		Terms: make(map[string]int),
	}
}

// Add counts one occurrence of term. Empty terms are ignored.
func (d *Document) Add(term string) {
	if term == "" {
		return
	}
	d.Terms[term]++
}

// Size is the number of distinct terms, not the token count. The query
// engine divides by it to get term frequency.
func (d *Document) Size() int {
	return len(d.Terms)
}

// Entries returns the term table sorted by term.
func (d *Document) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(d.Terms))
	for term, freq := range d.Terms {
		entries = append(entries, TermEntry{Term: term, Frequency: freq})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
