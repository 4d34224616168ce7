package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"book-recommender/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchProvider serves a self-hosted catalog mirror. Documents are
// stored under their book id with the models.Book field names, plus an
// optional "saleability" keyword (FREE, FOR_SALE) used by the ebook filters.
type ElasticsearchProvider struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchProvider(client *elasticsearch.Client, index string) *ElasticsearchProvider {
	return &ElasticsearchProvider{client: client, index: index}
}

func (p *ElasticsearchProvider) Name() string { return "elasticsearch" }

type esBookDoc struct {
	models.Book
	Saleability string `json:"saleability,omitempty"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string    `json:"_id"`
			Source esBookDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esGetResponse struct {
	ID     string    `json:"_id"`
	Found  bool      `json:"found"`
	Source esBookDoc `json:"_source"`
}

// translateElasticsearch maps field-scoped terms onto mirror fields for query_string.
func translateElasticsearch(terms string) string {
	r := strings.NewReplacer("intitle:", "title:", "inauthor:", "authors:", "subject:", "categories:")
	return r.Replace(terms)
}

func buildMirrorQuery(q Query, size int) map[string]interface{} {
	must := []interface{}{
		map[string]interface{}{
			"query_string": map[string]interface{}{
				"query":            translateElasticsearch(q.Terms),
				"fields":           []string{"title^3", "authors^2", "categories^2", "description"},
				"default_operator": "AND",
				"lenient":          true,
			},
		},
	}

	filter := []interface{}{
		map[string]interface{}{"exists": map[string]interface{}{"field": "thumbnail"}},
	}
	switch q.Filter {
	case FilterFreeEbooks:
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"saleability": "FREE"}})
	case FilterPaidEbooks:
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"saleability": "FOR_SALE"}})
	}

	body := map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must, "filter": filter}},
	}

	switch {
	case q.OrderBy == OrderNewest:
		body["sort"] = []interface{}{
			map[string]interface{}{"publishedDate": map[string]interface{}{"order": "desc", "unmapped_type": "keyword"}},
		}
	case q.Filter != "":
		body["sort"] = []interface{}{
			map[string]interface{}{"ratingsCount": map[string]interface{}{"order": "desc", "unmapped_type": "long"}},
			"_score",
		}
	}
	return body
}

func (p *ElasticsearchProvider) Search(ctx context.Context, q Query, maxResults int) ([]models.Book, error) {
	body, err := json.Marshal(buildMirrorQuery(q, maxResults))
	if err != nil {
		return nil, fmt.Errorf("encode mirror query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{p.index},
		Body:  strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, p.statusError(res)
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode mirror search: %w", err)
	}

	books := make([]models.Book, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		b := hit.Source.Book
		if b.ID == "" {
			b.ID = hit.ID
		}
		books = append(books, b)
	}
	return books, nil
}

func (p *ElasticsearchProvider) Lookup(ctx context.Context, id string) (models.Book, error) {
	req := esapi.GetRequest{Index: p.index, DocumentID: id}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return models.Book{}, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return models.Book{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if res.IsError() {
		return models.Book{}, p.statusError(res)
	}

	var parsed esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return models.Book{}, fmt.Errorf("decode mirror document: %w", err)
	}
	if !parsed.Found {
		return models.Book{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	b := parsed.Source.Book
	if b.ID == "" {
		b.ID = parsed.ID
	}
	return b, nil
}

func (p *ElasticsearchProvider) statusError(res *esapi.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	err := fmt.Errorf("elasticsearch %s: %s", res.Status(), strings.TrimSpace(string(msg)))
	if res.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrThrottled, err)
	}
	return err
}
