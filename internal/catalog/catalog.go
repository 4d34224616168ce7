// Package catalog adapts upstream book catalogs (Google Books, Open Library,
// an Elasticsearch mirror) to a single typed contract. Every upstream call
// passes through a shared rate limiter, a circuit breaker and a bounded
// throttle retry, and every returned record carries a thumbnail.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/metrics"
	"book-recommender/internal/models"

	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	ErrNotFound    = errors.New("CATALOG_NOT_FOUND")
	ErrThrottled   = errors.New("CATALOG_THROTTLED")
	ErrUnavailable = errors.New("CATALOG_UNAVAILABLE")

	// errCallerDone marks a call abandoned because the caller's context ended.
	errCallerDone = errors.New("caller context done")
)

// Order and filter values understood by every provider.
const (
	OrderNewest = "newest"

	FilterPaidEbooks = "paid-ebooks"
	FilterFreeEbooks = "free-ebooks"
)

// Query is a search expression in field-scoped syntax (intitle:, inauthor:,
// subject:) plus optional ordering and filtering.
type Query struct {
	Terms   string `json:"terms"`
	OrderBy string `json:"orderBy,omitempty"`
	Filter  string `json:"filter,omitempty"`
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Terms)
	if q.OrderBy != "" {
		b.WriteString(" orderBy=" + q.OrderBy)
	}
	if q.Filter != "" {
		b.WriteString(" filter=" + q.Filter)
	}
	return b.String()
}

// AuthorQuery matches books by one author.
func AuthorQuery(author string) Query {
	return Query{Terms: fmt.Sprintf(`inauthor:"%s"`, strings.ReplaceAll(author, `"`, ""))}
}

// SubjectQuery matches books by one category.
func SubjectQuery(category string) Query {
	return Query{Terms: "subject:" + category}
}

// Catalog is the contract the recommendation engine consumes.
type Catalog interface {
	// Lookup returns ErrNotFound for any failure, including transport errors.
	Lookup(ctx context.Context, id string) (models.Book, error)
	// Search returns at most maxResults thumbnail-bearing books. On failure the
	// slice is empty and the error says why.
	Search(ctx context.Context, q Query, maxResults int) ([]models.Book, error)
}

// Provider talks to a single upstream without any resilience of its own.
// Throttling responses must be reported as ErrThrottled and missing records
// as ErrNotFound.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, id string) (models.Book, error)
	Search(ctx context.Context, q Query, maxResults int) ([]models.Book, error)
}

type AdapterConfig struct {
	Timeout          time.Duration
	ThrottleCooldown time.Duration
	MaxAttempts      int
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// DefaultAdapterConfig: 10s per call, 5s cooldown, 3 attempts.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Timeout:          10 * time.Second,
		ThrottleCooldown: 5 * time.Second,
		MaxAttempts:      3,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// Adapter implements Catalog on top of a Provider.
type Adapter struct {
	provider Provider
	limiter  Limiter
	clock    Clock
	breaker  *gobreaker.CircuitBreaker[any]
	cfg      AdapterConfig
	logger   logger.Logger
}

func NewAdapter(provider Provider, limiter Limiter, clock Clock, cfg AdapterConfig, log logger.Logger) *Adapter {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAdapterConfig().Timeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"provider": provider.Name()})

	settings := gobreaker.Settings{
		Name:        "catalog-" + provider.Name(),
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.FailureThreshold > 0 && counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Answers from a healthy upstream do not count against it.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrThrottled) ||
				errors.Is(err, errCallerDone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("catalog circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	return &Adapter{
		provider: provider,
		limiter:  limiter,
		clock:    clock,
		breaker:  gobreaker.NewCircuitBreaker[any](settings),
		cfg:      cfg,
		logger:   log,
	}
}

func (a *Adapter) Lookup(ctx context.Context, id string) (models.Book, error) {
	if strings.TrimSpace(id) == "" {
		return models.Book{}, ErrNotFound
	}

	book, err := call(ctx, a, "lookup", func(ctx context.Context) (models.Book, error) {
		return a.provider.Lookup(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Warn("catalog lookup failed", map[string]interface{}{"bookId": id, "error": err})
		}
		return models.Book{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if book.Thumbnail == "" {
		return models.Book{}, fmt.Errorf("%w: %s has no thumbnail", ErrNotFound, id)
	}
	return book, nil
}

func (a *Adapter) Search(ctx context.Context, q Query, maxResults int) ([]models.Book, error) {
	if strings.TrimSpace(q.Terms) == "" || maxResults <= 0 {
		return []models.Book{}, nil
	}

	books, err := call(ctx, a, "search", func(ctx context.Context) ([]models.Book, error) {
		return a.provider.Search(ctx, q, maxResults)
	})
	if err != nil {
		a.logger.Warn("catalog search failed", map[string]interface{}{"query": q.String(), "error": err})
		return []models.Book{}, err
	}

	filtered := withThumbnails(books)
	if len(filtered) > maxResults {
		filtered = filtered[:maxResults]
	}
	return filtered, nil
}

// call runs fn under the limiter and breaker, retrying throttled attempts
// after a fixed cooldown up to MaxAttempts in total.
func call[T any](ctx context.Context, a *Adapter, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	provider := a.provider.Name()

	for attempt := 1; ; attempt++ {
		waitStart := a.clock.Now()
		if err := a.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		metrics.CatalogLimiterWait.WithLabelValues(provider).Observe(a.clock.Now().Sub(waitStart).Seconds())

		res, err := a.breaker.Execute(func() (any, error) {
			callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
			defer cancel()
			res, err := fn(callCtx)
			if err != nil && ctx.Err() != nil {
				return res, fmt.Errorf("%w: %w", errCallerDone, ctx.Err())
			}
			return res, err
		})
		if err == nil {
			metrics.CatalogRequests.WithLabelValues(provider, op, "ok").Inc()
			return res.(T), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.CatalogRequests.WithLabelValues(provider, op, "canceled").Inc()
			return zero, ctxErr
		}

		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CatalogRequests.WithLabelValues(provider, op, "breaker_open").Inc()
			return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
		case errors.Is(err, ErrNotFound):
			metrics.CatalogRequests.WithLabelValues(provider, op, "not_found").Inc()
			return zero, err
		case errors.Is(err, ErrThrottled):
			metrics.CatalogRequests.WithLabelValues(provider, op, "throttled").Inc()
			metrics.CatalogThrottled.WithLabelValues(provider).Inc()
		default:
			metrics.CatalogRequests.WithLabelValues(provider, op, "error").Inc()
			return zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		if attempt >= a.cfg.MaxAttempts {
			return zero, fmt.Errorf("%w after %d attempts", ErrThrottled, attempt)
		}

		a.logger.Warn("catalog throttled, cooling down", map[string]interface{}{
			"operation":  op,
			"attempt":    attempt,
			"cooldownMs": a.cfg.ThrottleCooldown.Milliseconds(),
		})
		if err := a.clock.Sleep(ctx, a.cfg.ThrottleCooldown); err != nil {
			return zero, err
		}
	}
}

func withThumbnails(books []models.Book) []models.Book {
	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if b.Thumbnail == "" || b.ID == "" {
			continue
		}
		out = append(out, b)
	}
	return out
}
