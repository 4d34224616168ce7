// internal/models/favorite.go
package models

import "time"

// Favorite is a book a user marked as liked. Authors is stored comma-joined.
type Favorite struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	BookID      string    `json:"bookId"`
	Title       string    `json:"title"`
	Authors     string    `json:"authors"`
	Thumbnail   string    `json:"thumbnail"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DescriptionUpdate asks the favorite store to replace a stored description
// with a richer one found in the catalog.
type DescriptionUpdate struct {
	FavoriteID  int64  `json:"favoriteId"`
	Description string `json:"description"`
}
