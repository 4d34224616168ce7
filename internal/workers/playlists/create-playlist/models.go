// internal/workers/playlists/create-playlist/models.go
package createplaylist

import "book-recommender/internal/models"

// Input carries the recommendations shown to the user. When they are absent
// the worker runs the engine itself.
type Input struct {
	UserID          string              `json:"userId"`
	Name            string              `json:"name"`
	Recommendations []models.ScoredBook `json:"recommendations,omitempty"`
}

type Output struct {
	PlaylistID       string `json:"playlistId"`
	SourceCount      int    `json:"sourceCount"`
	RecommendedCount int    `json:"recommendedCount"`
	FavoritesCleared int64  `json:"favoritesCleared"`
}
