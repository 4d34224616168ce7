package recommend

import (
	"math"

	"book-recommender/internal/common/textutil"
)

// TextSimilarity is the TF-IDF cosine similarity of two descriptions, using
// the pair itself as the corpus. Weights are raw term counts times the smoothed
// idf ln((1+n)/(1+df))+1, L2-normalized. Empty input or an empty vocabulary
// after stop-word removal yields 0.
func TextSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	docs := [2]map[string]float64{termCounts(a), termCounts(b)}
	if len(docs[0]) == 0 && len(docs[1]) == 0 {
		return 0
	}

	const n = float64(len(docs))
	df := make(map[string]float64, len(docs[0])+len(docs[1]))
	for _, doc := range docs {
		for term := range doc {
			df[term]++
		}
	}

	var norms [2]float64
	for i, doc := range docs {
		for term, tf := range doc {
			w := tf * (math.Log((1+n)/(1+df[term])) + 1)
			doc[term] = w
			norms[i] += w * w
		}
		norms[i] = math.Sqrt(norms[i])
	}
	if norms[0] == 0 || norms[1] == 0 {
		return 0
	}

	var dot float64
	for term, w := range docs[0] {
		dot += w * docs[1][term]
	}

	sim := dot / (norms[0] * norms[1])
	if math.IsNaN(sim) || sim < 0 {
		return 0
	}
	return math.Min(sim, 1)
}

func termCounts(s string) map[string]float64 {
	counts := make(map[string]float64)
	for _, tok := range textutil.Tokenize(s) {
		counts[tok]++
	}
	return counts
}
