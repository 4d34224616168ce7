package recommend

import (
	"context"

	"book-recommender/internal/catalog"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/textutil"
	"book-recommender/internal/models"
)

// DiscoveryQueries are appended after the favorite-derived queries on every
// run: newest releases, popular paid ebooks, popular free ebooks.
var DiscoveryQueries = []catalog.Query{
	{Terms: "subject:fiction", OrderBy: catalog.OrderNewest},
	{Terms: "bestseller", Filter: catalog.FilterPaidEbooks},
	{Terms: "classic", Filter: catalog.FilterFreeEbooks},
}

type GeneratorConfig struct {
	MaxResultsPerQuery int
	CandidateCap       int
	Enrich             bool
}

// Generator gathers the candidate pool for one run.
type Generator struct {
	catalog catalog.Catalog
	cfg     GeneratorConfig
	logger  logger.Logger
}

func NewGenerator(cat catalog.Catalog, cfg GeneratorConfig, log logger.Logger) *Generator {
	return &Generator{catalog: cat, cfg: cfg, logger: log}
}

// Queries lists one author query per distinct favorite author, one subject
// query per distinct favorite category (first-seen order), then the
// discovery queries.
func (g *Generator) Queries(features []models.Features) []catalog.Query {
	var authors, categories []string
	for _, f := range features {
		authors = append(authors, f.Authors...)
		categories = append(categories, f.Categories...)
	}
	authors = textutil.Unique(authors)
	categories = textutil.Unique(categories)

	queries := make([]catalog.Query, 0, len(authors)+len(categories)+len(DiscoveryQueries))
	for _, a := range authors {
		queries = append(queries, catalog.AuthorQuery(a))
	}
	for _, c := range categories {
		queries = append(queries, catalog.SubjectQuery(c))
	}
	return append(queries, DiscoveryQueries...)
}

// Generate runs the queries in order and returns a pool deduplicated by id,
// never containing a favorite id, capped at CandidateCap. Failed queries are
// skipped. The only error is a cancelled context.
func (g *Generator) Generate(ctx context.Context, favoriteIDs []string, features []models.Features) ([]models.Book, error) {
	seen := make(map[string]struct{}, len(favoriteIDs))
	for _, id := range favoriteIDs {
		seen[id] = struct{}{}
	}

	pool := make([]models.Book, 0, g.cfg.CandidateCap)
	for _, q := range g.Queries(features) {
		if len(pool) >= g.cfg.CandidateCap {
			break
		}
		if err := ctx.Err(); err != nil {
			return pool, err
		}

		results, err := g.catalog.Search(ctx, q, g.cfg.MaxResultsPerQuery)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return pool, ctxErr
			}
			g.logger.Warn("candidate query failed, skipping", map[string]interface{}{
				"query": q.String(),
				"error": err,
			})
			continue
		}

		for _, b := range results {
			if len(pool) >= g.cfg.CandidateCap {
				break
			}
			if b.ID == "" {
				continue
			}
			if _, dup := seen[b.ID]; dup {
				continue
			}
			seen[b.ID] = struct{}{}
			pool = append(pool, g.enrich(ctx, b))
		}
	}

	g.logger.Debug("candidate pool built", map[string]interface{}{"size": len(pool)})
	return pool, nil
}

// enrich replaces a search record with its full detail record when enabled,
// keeping the search record if the lookup fails.
func (g *Generator) enrich(ctx context.Context, b models.Book) models.Book {
	if !g.cfg.Enrich {
		return b
	}
	detail, err := g.catalog.Lookup(ctx, b.ID)
	if err != nil {
		g.logger.Debug("candidate enrichment failed", map[string]interface{}{"bookId": b.ID, "error": err})
		return b
	}
	detail.ID = b.ID
	if detail.Thumbnail == "" {
		detail.Thumbnail = b.Thumbnail
	}
	if len(detail.Authors) == 0 {
		detail.Authors = b.Authors
	}
	if len(detail.Categories) == 0 {
		detail.Categories = b.Categories
	}
	if detail.Description == "" {
		detail.Description = b.Description
	}
	return detail
}
