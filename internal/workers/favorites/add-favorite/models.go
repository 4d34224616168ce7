// internal/workers/favorites/add-favorite/models.go
package addfavorite

type Input struct {
	UserID      string   `json:"userId"`
	BookID      string   `json:"bookId"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Thumbnail   string   `json:"thumbnail"`
	Description string   `json:"description,omitempty"`
}

type Output struct {
	FavoriteID int64 `json:"favoriteId"`
	Added      bool  `json:"added"`
}
