package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	httpclient "book-recommender/internal/common/http"
	"book-recommender/internal/common/textutil"
	"book-recommender/internal/models"
)

// OpenLibraryProvider reads the Open Library search and works APIs. Book ids
// are work keys without the "/works/" prefix (e.g. "OL45804W").
type OpenLibraryProvider struct {
	baseURL  string
	coverURL string
	client   *httpclient.Client
}

func NewOpenLibraryProvider(baseURL, coverURL string, client *httpclient.Client) *OpenLibraryProvider {
	return &OpenLibraryProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		coverURL: strings.TrimRight(coverURL, "/"),
		client:   client,
	}
}

func (p *OpenLibraryProvider) Name() string { return "openlibrary" }

type olSearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	CoverI           int64    `json:"cover_i"`
	Subject          []string `json:"subject"`
	Publisher        []string `json:"publisher"`
	FirstPublishYear int      `json:"first_publish_year"`
	Language         []string `json:"language"`
	RatingsAverage   float64  `json:"ratings_average"`
	RatingsCount     int      `json:"ratings_count"`
	FirstSentence    []string `json:"first_sentence"`
}

type olSearchResponse struct {
	NumFound int           `json:"numFound"`
	Docs     []olSearchDoc `json:"docs"`
}

type olWork struct {
	Key            string   `json:"key"`
	Title          string   `json:"title"`
	Description    Text     `json:"description"`
	Subjects       []string `json:"subjects"`
	Covers         []int64  `json:"covers"`
	FirstPublished string   `json:"first_publish_date"`
}

// maxSubjects keeps Open Library's long subject lists comparable to the
// handful of categories other catalogs return.
const maxSubjects = 5

func (p *OpenLibraryProvider) cover(id int64) string {
	if id <= 0 {
		return ""
	}
	return fmt.Sprintf("%s/b/id/%d-M.jpg", p.coverURL, id)
}

func workID(key string) string {
	return strings.TrimPrefix(key, "/works/")
}

func firstN(values []string, n int) []string {
	values = textutil.Unique(values)
	if len(values) > n {
		values = values[:n]
	}
	return values
}

func (d olSearchDoc) toBook(p *OpenLibraryProvider) models.Book {
	b := models.Book{
		ID:            workID(d.Key),
		Title:         d.Title,
		Authors:       textutil.Unique(d.AuthorName),
		Thumbnail:     p.cover(d.CoverI),
		Categories:    firstN(d.Subject, maxSubjects),
		AverageRating: d.RatingsAverage,
		RatingsCount:  d.RatingsCount,
	}
	if len(d.FirstSentence) > 0 {
		b.Description = textutil.Normalize(d.FirstSentence[0])
	}
	if len(d.Publisher) > 0 {
		b.Publisher = d.Publisher[0]
	}
	if d.FirstPublishYear > 0 {
		b.PublishedDate = strconv.Itoa(d.FirstPublishYear)
	}
	if len(d.Language) > 0 {
		b.Language = d.Language[0]
	}
	return b
}

// translateOpenLibrary rewrites field prefixes into Open Library's search syntax.
func translateOpenLibrary(terms string) string {
	r := strings.NewReplacer("intitle:", "title:", "inauthor:", "author:")
	return r.Replace(terms)
}

func (p *OpenLibraryProvider) Search(ctx context.Context, q Query, maxResults int) ([]models.Book, error) {
	params := url.Values{}
	terms := translateOpenLibrary(q.Terms)
	switch q.Filter {
	case FilterFreeEbooks:
		params.Set("has_fulltext", "true")
	case FilterPaidEbooks:
		params.Set("sort", "rating")
	}
	if q.OrderBy == OrderNewest {
		params.Set("sort", "new")
	}
	params.Set("q", terms)
	params.Set("limit", strconv.Itoa(maxResults))

	var res olSearchResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"/search.json?"+params.Encode(), &res); err != nil {
		return nil, p.classify(err)
	}

	books := make([]models.Book, 0, len(res.Docs))
	for _, d := range res.Docs {
		books = append(books, d.toBook(p))
	}
	return books, nil
}

// Lookup reads a work record. Works carry no author names, so Authors stays
// empty and callers keep whatever they already know.
func (p *OpenLibraryProvider) Lookup(ctx context.Context, id string) (models.Book, error) {
	var w olWork
	endpoint := fmt.Sprintf("%s/works/%s.json", p.baseURL, url.PathEscape(workID(id)))
	if err := p.client.GetJSON(ctx, endpoint, &w); err != nil {
		return models.Book{}, p.classify(err)
	}
	if w.Key == "" {
		return models.Book{}, ErrNotFound
	}

	b := models.Book{
		ID:            workID(w.Key),
		Title:         w.Title,
		Description:   w.Description.Clean(),
		Categories:    firstN(w.Subjects, maxSubjects),
		PublishedDate: w.FirstPublished,
	}
	if len(w.Covers) > 0 {
		b.Thumbnail = p.cover(w.Covers[0])
	}
	return b, nil
}

func (p *OpenLibraryProvider) classify(err error) error {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	switch statusErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %v", ErrThrottled, err)
	}
	return err
}
