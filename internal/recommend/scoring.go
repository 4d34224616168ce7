package recommend

import (
	"math"
	"strings"

	"book-recommender/internal/models"
)

const (
	TextWeight      = 0.5
	CategoryWeight  = 0.3
	AuthorWeight    = 0.1
	DiversityBonus  = 0.1
	PopularityBonus = 0.2

	maxRating       = 5.0
	ratingsCountCap = 1000
)

// PairScore is the breakdown of one favorite/candidate comparison.
type PairScore struct {
	Text      float64 `json:"text"`
	Category  float64 `json:"category"`
	Author    float64 `json:"author"`
	Diversity float64 `json:"diversity"`
}

func (p PairScore) Total() float64 {
	return p.Text + p.Category + p.Author + p.Diversity
}

// ScorePair compares one favorite with one candidate. It is pure and never
// negative.
func ScorePair(fav models.Features, candidate models.Book) PairScore {
	var s PairScore
	s.Text = TextWeight * TextSimilarity(fav.Description, candidate.Description)
	s.Category = CategoryWeight * Jaccard(fav.Categories, candidate.Categories)
	s.Author = AuthorWeight * Jaccard(fav.Authors, candidate.Authors)
	if disjoint(fav.Authors, candidate.Authors) {
		s.Diversity = DiversityBonus
	}
	return s
}

// Score is ScorePair(fav, candidate).Total().
func Score(fav models.Features, candidate models.Book) float64 {
	return ScorePair(fav, candidate).Total()
}

// Popularity rewards well-rated books with many ratings, up to PopularityBonus.
func Popularity(b models.Book) float64 {
	rating := math.Max(0, math.Min(b.AverageRating, maxRating))
	count := b.RatingsCount
	if count < 0 {
		count = 0
	}
	if count > ratingsCountCap {
		count = ratingsCountCap
	}
	return (rating / maxRating) * (float64(count) / ratingsCountCap) * PopularityBonus
}

// Aggregate is the best pair score over all favorites plus the candidate's
// popularity bonus. With no favorites only the popularity bonus remains.
func Aggregate(favorites []models.Features, candidate models.Book) float64 {
	best := 0.0
	for _, fav := range favorites {
		if s := Score(fav, candidate); s > best {
			best = s
		}
	}
	return best + Popularity(candidate)
}

// Jaccard is |a ∩ b| / |a ∪ b| over the trimmed, non-blank values of a and b.
// It is 0 when either side is empty.
func Jaccard(a, b []string) float64 {
	sa, sb := toSet(a), toSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	inter := 0
	for v := range sa {
		if _, ok := sb[v]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// disjoint reports whether a and b share no value. Two empty sets are
// disjoint.
func disjoint(a, b []string) bool {
	sb := toSet(b)
	for v := range toSet(a) {
		if _, ok := sb[v]; ok {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
