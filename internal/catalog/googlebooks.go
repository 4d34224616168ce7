package catalog

import (
	"context"
	"encoding/json"
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

// googleMaxResults is the volumes endpoint's page size ceiling.
const googleMaxResults = 40

// GoogleBooksProvider reads the Google Books volumes API.
type GoogleBooksProvider struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
}

func NewGoogleBooksProvider(baseURL, apiKey string, client *httpclient.Client) *GoogleBooksProvider {
	return &GoogleBooksProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (p *GoogleBooksProvider) Name() string { return "googlebooks" }

type googleVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title          string   `json:"title"`
		Subtitle       string   `json:"subtitle"`
		Authors        []string `json:"authors"`
		Publisher      string   `json:"publisher"`
		PublishedDate  string   `json:"publishedDate"`
		Description    Text     `json:"description"`
		Categories     []string `json:"categories"`
		AverageRating  float64  `json:"averageRating"`
		RatingsCount   int      `json:"ratingsCount"`
		MaturityRating string   `json:"maturityRating"`
		Language       string   `json:"language"`
		ImageLinks     struct {
			SmallThumbnail string `json:"smallThumbnail"`
			Thumbnail      string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

type googleVolumes struct {
	TotalItems int            `json:"totalItems"`
	Items      []googleVolume `json:"items"`
}

type googleErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func (v googleVolume) toBook() models.Book {
	info := v.VolumeInfo
	thumb := info.ImageLinks.Thumbnail
	if thumb == "" {
		thumb = info.ImageLinks.SmallThumbnail
	}
	return models.Book{
		ID:             v.ID,
		Title:          info.Title,
		Authors:        textutil.Unique(info.Authors),
		Thumbnail:      thumb,
		Description:    info.Description.Clean(),
		Categories:     textutil.Unique(info.Categories),
		Publisher:      info.Publisher,
		PublishedDate:  info.PublishedDate,
		MaturityRating: info.MaturityRating,
		Language:       info.Language,
		AverageRating:  info.AverageRating,
		RatingsCount:   info.RatingsCount,
	}
}

func (p *GoogleBooksProvider) Lookup(ctx context.Context, id string) (models.Book, error) {
	endpoint := fmt.Sprintf("%s/volumes/%s", p.baseURL, url.PathEscape(id))
	if p.apiKey != "" {
		endpoint += "?" + url.Values{"key": {p.apiKey}}.Encode()
	}

	var vol googleVolume
	if err := p.client.GetJSON(ctx, endpoint, &vol); err != nil {
		return models.Book{}, p.classify(err)
	}
	if vol.ID == "" {
		return models.Book{}, ErrNotFound
	}
	return vol.toBook(), nil
}

func (p *GoogleBooksProvider) Search(ctx context.Context, q Query, maxResults int) ([]models.Book, error) {
	if maxResults > googleMaxResults {
		maxResults = googleMaxResults
	}

	params := url.Values{}
	params.Set("q", q.Terms)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("printType", "books")
	if q.OrderBy != "" {
		params.Set("orderBy", q.OrderBy)
	}
	if q.Filter != "" {
		params.Set("filter", q.Filter)
	}
	if p.apiKey != "" {
		params.Set("key", p.apiKey)
	}

	var res googleVolumes
	if err := p.client.GetJSON(ctx, p.baseURL+"/volumes?"+params.Encode(), &res); err != nil {
		return nil, p.classify(err)
	}

	books := make([]models.Book, 0, len(res.Items))
	for _, v := range res.Items {
		books = append(books, v.toBook())
	}
	return books, nil
}

// classify maps HTTP failures onto the catalog sentinels. Google signals
// per-user rate limiting with 429 or with 403 and a rateLimitExceeded reason.
func (p *GoogleBooksProvider) classify(err error) error {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	switch statusErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrThrottled, err)
	case http.StatusForbidden:
		var body googleErrorBody
		if json.Unmarshal(statusErr.Body, &body) == nil {
			for _, e := range body.Error.Errors {
				if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
					return fmt.Errorf("%w: %v", ErrThrottled, err)
				}
			}
		}
	}
	return err
}
