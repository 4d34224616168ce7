// internal/models/book.go
package models

// Book is the canonical catalog record. Records without a thumbnail never
// leave the catalog adapter.
type Book struct {
	ID             string   `json:"id"`
	Title          string   `json:"title,omitempty"`
	Authors        []string `json:"authors"`
	Thumbnail      string   `json:"thumbnail"`
	Description    string   `json:"description,omitempty"`
	Categories     []string `json:"categories"`
	Publisher      string   `json:"publisher,omitempty"`
	PublishedDate  string   `json:"publishedDate,omitempty"`
	MaturityRating string   `json:"maturityRating,omitempty"`
	Language       string   `json:"language,omitempty"`
	AverageRating  float64  `json:"averageRating"`
	RatingsCount   int      `json:"ratingsCount"`
}

// DisplayAuthors substitutes "Unknown" for an empty author list. Scoring
// always works on Authors directly.
func (b Book) DisplayAuthors() []string {
	if len(b.Authors) == 0 {
		return []string{"Unknown"}
	}
	return b.Authors
}

// Features are the descriptive signals of one favorite used for scoring.
type Features struct {
	Title          string   `json:"title,omitempty"`
	Authors        []string `json:"authors"`
	Description    string   `json:"description,omitempty"`
	Categories     []string `json:"categories"`
	Publisher      string   `json:"publisher,omitempty"`
	PublishedDate  string   `json:"publishedDate,omitempty"`
	MaturityRating string   `json:"maturityRating,omitempty"`
	Language       string   `json:"language,omitempty"`
	AverageRating  float64  `json:"averageRating"`
	RatingsCount   int      `json:"ratingsCount"`
}

// FeaturesOf copies the descriptive part of b.
func FeaturesOf(b Book) Features {
	return Features{
		Title:          b.Title,
		Authors:        b.Authors,
		Description:    b.Description,
		Categories:     b.Categories,
		Publisher:      b.Publisher,
		PublishedDate:  b.PublishedDate,
		MaturityRating: b.MaturityRating,
		Language:       b.Language,
		AverageRating:  b.AverageRating,
		RatingsCount:   b.RatingsCount,
	}
}

type ScoredBook struct {
	Book  Book    `json:"book"`
	Score float64 `json:"score"`
}
