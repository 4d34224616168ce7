package recommend

import (
	"sort"
	"strings"

	"book-recommender/internal/models"
)

// Rank orders scored books by descending score, keeping discovery order for
// ties, then walks the list greedily. The first minAccepted books are taken
// unconditionally; after that a book is taken only when it brings an author
// or a category not yet seen among the accepted ones. The walk stops at
// maxResults.
func Rank(scored []models.ScoredBook, minAccepted, maxResults int) []models.ScoredBook {
	if maxResults <= 0 || len(scored) == 0 {
		return []models.ScoredBook{}
	}

	sorted := make([]models.ScoredBook, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	seenAuthors := make(map[string]struct{})
	seenCategories := make(map[string]struct{})
	accepted := make([]models.ScoredBook, 0, maxResults)

	for _, sb := range sorted {
		if len(accepted) >= maxResults {
			break
		}
		if len(accepted) >= minAccepted &&
			!bringsNew(sb.Book.Authors, seenAuthors) &&
			!bringsNew(sb.Book.Categories, seenCategories) {
			continue
		}

		accepted = append(accepted, sb)
		markSeen(sb.Book.Authors, seenAuthors)
		markSeen(sb.Book.Categories, seenCategories)
	}
	return accepted
}

func bringsNew(values []string, seen map[string]struct{}) bool {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			return true
		}
	}
	return false
}

func markSeen(values []string, seen map[string]struct{}) {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			seen[v] = struct{}{}
		}
	}
}
