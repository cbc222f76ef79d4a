package processor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/normalizer"
)

func benchText(words int) string {
	vocab := []string{"distributed", "search", "index", "query", "engine", "ranking", "term", "document"}
	var sb strings.Builder
	for i := 0; i < words; i++ {
		sb.WriteString(vocab[i%len(vocab)])
		sb.WriteString(fmt.Sprintf("%c ", 'a'+i%26))
	}
	return sb.String()
}

func BenchmarkProcessReader(b *testing.B) {
	for _, words := range []int{100, 1000, 10000} {
		text := benchText(words)
		b.Run(fmt.Sprintf("words_%d", words), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				if _, ok := ProcessReader("bench.txt", strings.NewReader(text), normalizer.Identity{}); !ok {
					b.Fatal("ProcessReader rejected benchmark text")
				}
			}
		})
	}
}
