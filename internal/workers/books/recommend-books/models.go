// internal/workers/books/recommend-books/models.go
package recommendbooks

import "book-recommender/internal/models"

type Input struct {
	UserID string `json:"userId"`
}

type Output struct {
	RunID               string              `json:"runId"`
	Recommendations     []models.ScoredBook `json:"recommendations"`
	FavoriteCount       int                 `json:"favoriteCount"`
	CandidateCount      int                 `json:"candidateCount"`
	DescriptionsUpdated int                 `json:"descriptionsUpdated"`
}
