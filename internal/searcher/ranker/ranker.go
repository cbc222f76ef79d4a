// Package ranker implements the TF-IDF scoring law. Term frequency is
// normalised by a document's distinct-term count and the inverse document
// frequency is ln(matching/total), which is never positive: a term found in
// every document scores zero and rarer terms push scores further below zero.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// TF is freq divided by the document's distinct-term count.
func TF(freq, size int) float64 {
	if size <= 0 {
		return 0
	}
	return float64(freq) / float64(size)
}

// IDF is ln(matching/total). Degenerate counts score zero.
func IDF(matching, total int) float64 {
	if matching <= 0 || total <= 0 {
		return 0
	}
	return math.Log(float64(matching) / float64(total))
}

// ScoreTerm scores every posting of one term. sizes is the document registry
// (name to distinct-term count) and total its length; postings of documents
// missing from sizes are ignored and do not count as matches.
func ScoreTerm(postings index.PostingList, sizes map[string]int, total int) []ScoredDoc {
	matched := make(index.PostingList, 0, len(postings))
	for _, p := range postings {
		if _, ok := sizes[p.DocID]; ok {
			matched = append(matched, p)
		}
	}
	idf := IDF(len(matched), total)

	scored := make([]ScoredDoc, 0, len(matched))
	for _, p := range matched {
		scored = append(scored, ScoredDoc{
			DocID: p.DocID,
			Score: TF(p.Frequency, sizes[p.DocID]) * idf,
		})
	}
	sortScored(scored)
	return scored
}

// Combine intersects per-term results and multiplies each surviving
// document's scores in term order. No terms means no results.
func Combine(perTerm [][]ScoredDoc) []ScoredDoc {
	if len(perTerm) == 0 {
		return []ScoredDoc{}
	}

	shortest := 0
	for i, docs := range perTerm {
		if len(docs) < len(perTerm[shortest]) {
			shortest = i
		}
	}
	lookups := make([]map[string]float64, len(perTerm))
	for i, docs := range perTerm {
		m := make(map[string]float64, len(docs))
		for _, d := range docs {
			m[d.DocID] = d.Score
		}
		lookups[i] = m
	}

	combined := make([]ScoredDoc, 0, len(perTerm[shortest]))
candidates:
	for _, d := range perTerm[shortest] {
		product := 1.0
		for _, m := range lookups {
			score, ok := m[d.DocID]
			if !ok {
				continue candidates
			}
			product *= score
		}
		combined = append(combined, ScoredDoc{DocID: d.DocID, Score: product})
	}
	sortScored(combined)
	return combined
}

// Limit truncates docs to at most n entries; n <= 0 keeps everything.
func Limit(docs []ScoredDoc, n int) []ScoredDoc {
	if n > 0 && len(docs) > n {
		return docs[:n]
	}
	return docs
}

// sortScored orders by score descending and breaks ties by document name.
func sortScored(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}
