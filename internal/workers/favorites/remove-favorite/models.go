// internal/workers/favorites/remove-favorite/models.go
package removefavorite

type Input struct {
	UserID string `json:"userId"`
	BookID string `json:"bookId"`
}

type Output struct {
	Removed bool `json:"removed"`
}
