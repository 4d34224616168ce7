// internal/workers/books/search-books/models.go
package searchbooks

import "book-recommender/internal/models"

type Input struct {
	Title      string `json:"title,omitempty"`
	Author     string `json:"author,omitempty"`
	Genre      string `json:"genre,omitempty"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type Output struct {
	Books        []models.Book `json:"books"`
	TotalResults int           `json:"totalResults"`
	Query        string        `json:"query"`
}
