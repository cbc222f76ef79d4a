package index

// Posting is one document's occurrence count for a term.
type Posting struct {
	DocID     string
	Frequency int
}

type PostingList []Posting

// TermEntry is a (term, frequency) row, either scoped to one document or to
// the corpus aggregate.
type TermEntry struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

// Registration is a document registry row. Size is the number of distinct
// terms in the document.
type Registration struct {
	Name string
	Size int
}
