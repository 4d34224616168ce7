// internal/models/playlist.go
package models

import "time"

type Playlist struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlaylistBook is one entry of a playlist. IsSource marks the favorites the
// playlist was generated from, as opposed to recommended books.
type PlaylistBook struct {
	PlaylistID string `json:"playlistId"`
	Position   int    `json:"position"`
	IsSource   bool   `json:"isSource"`
	Book       Book   `json:"book"`
}
