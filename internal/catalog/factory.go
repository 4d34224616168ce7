package catalog

import (
	"fmt"

	"book-recommender/internal/common/config"
	httpclient "book-recommender/internal/common/http"
	"book-recommender/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

// Deps are the shared clients a catalog may need. Redis is required only for
// the shared limiter and Elasticsearch only for the mirror provider.
type Deps struct {
	Redis         redis.Cmdable
	Elasticsearch *elasticsearch.Client
	Clock         Clock
	Logger        logger.Logger
}

// New assembles the configured provider behind a limiter and an Adapter.
func New(cfg config.CatalogConfig, esIndex string, deps Deps) (*Adapter, error) {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}

	httpClient := httpclient.NewClient(config.GetDuration(cfg.Timeout))

	var provider Provider
	switch cfg.Provider {
	case "googlebooks":
		provider = NewGoogleBooksProvider(cfg.BaseURL, cfg.APIKey, httpClient)
	case "openlibrary":
		provider = NewOpenLibraryProvider(cfg.BaseURL, cfg.CoverBaseURL, httpClient)
	case "elasticsearch":
		if deps.Elasticsearch == nil {
			return nil, fmt.Errorf("elasticsearch catalog requires an elasticsearch client")
		}
		provider = NewElasticsearchProvider(deps.Elasticsearch, esIndex)
	default:
		return nil, fmt.Errorf("unknown catalog provider %q", cfg.Provider)
	}

	interval := config.GetDuration(cfg.MinInterval)
	var limiter Limiter
	if cfg.SharedLimiter && deps.Redis != nil {
		limiter = NewRedisLimiter(deps.Redis, cfg.LimiterKey, interval, deps.Clock, deps.Logger)
	} else {
		limiter = NewLocalLimiter(interval, deps.Clock)
	}

	return NewAdapter(provider, limiter, deps.Clock, AdapterConfig{
		Timeout:          config.GetDuration(cfg.Timeout),
		ThrottleCooldown: config.GetDuration(cfg.ThrottleCooldown),
		MaxAttempts:      cfg.MaxAttempts,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      config.GetDuration(cfg.Breaker.OpenTimeout),
		HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
	}, deps.Logger), nil
}
