package parser

import "strings"

// QueryPlan is a conjunctive query: every term must match. Terms are raw
// tokens; normalization happens in the executor so that it is the same code
// path used at index time.
type QueryPlan struct {
	RawQuery string
	Terms    []string
}

// Parse splits query on whitespace. There are no operators.
func Parse(query string) *QueryPlan {
	return &QueryPlan{
		RawQuery: query,
		Terms:    strings.Fields(query),
	}
}

// FromTerms builds a plan from already separated terms, as given on a
// command line.
func FromTerms(terms []string) *QueryPlan {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, strings.Fields(t)...)
	}
	return &QueryPlan{
		RawQuery: strings.Join(out, " "),
		Terms:    out,
	}
}
