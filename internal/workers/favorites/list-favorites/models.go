// internal/workers/favorites/list-favorites/models.go
package listfavorites

import "book-recommender/internal/models"

type Input struct {
	UserID string `json:"userId"`
}

type Output struct {
	Favorites []models.Favorite `json:"favorites"`
	Count     int               `json:"count"`
}
