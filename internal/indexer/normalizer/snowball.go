package normalizer

import (
	"strings"

	"github.com/kljensen/snowball/english"
)

// Snowball lower-cases the token and reduces it with the Snowball English
// stemmer. Stop words pass through unstemmed.
type Snowball struct{}

func (Snowball) Normalize(token string) (string, bool) {
	stemmed := english.Stem(strings.ToLower(token), false)
	return stemmed, stemmed != ""
}
