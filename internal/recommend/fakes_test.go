package recommend

import (
	"context"
	"fmt"
	"sync"

	"book-recommender/internal/catalog"
	"book-recommender/internal/models"
)

// fakeCatalog serves canned lookups and searches keyed by Query.String().
type fakeCatalog struct {
	mu        sync.Mutex
	books     map[string]models.Book
	results   map[string][]models.Book
	searchErr map[string]error
	searches  []catalog.Query
	lookups   []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		books:     map[string]models.Book{},
		results:   map[string][]models.Book{},
		searchErr: map[string]error{},
	}
}

func (c *fakeCatalog) Lookup(_ context.Context, id string) (models.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups = append(c.lookups, id)
	b, ok := c.books[id]
	if !ok {
		return models.Book{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	return b, nil
}

func (c *fakeCatalog) Search(_ context.Context, q catalog.Query, maxResults int) ([]models.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, q)
	if err := c.searchErr[q.String()]; err != nil {
		return []models.Book{}, err
	}
	res := c.results[q.String()]
	if len(res) > maxResults {
		res = res[:maxResults]
	}
	return append([]models.Book(nil), res...), nil
}

func (c *fakeCatalog) searchTerms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	terms := make([]string, 0, len(c.searches))
	for _, q := range c.searches {
		terms = append(terms, q.String())
	}
	return terms
}

func book(id string, authors, categories []string, description string) models.Book {
	return models.Book{
		ID:          id,
		Title:       "Title " + id,
		Authors:     authors,
		Categories:  categories,
		Description: description,
		Thumbnail:   "http://covers.example/" + id + ".jpg",
	}
}

func manyBooks(prefix string, n int) []models.Book {
	out := make([]models.Book, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%02d", prefix, i)
		out = append(out, book(id, []string{"Author " + id}, []string{"Cat " + id}, ""))
	}
	return out
}
