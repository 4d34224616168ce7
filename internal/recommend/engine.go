// Package recommend turns a user's favorite books into a short, diverse list
// of catalog recommendations: feature extraction, candidate generation,
// similarity scoring and diversity ranking. A run is sequential and keeps no
// state between calls.
package recommend

import (
	"context"
	"time"

	"book-recommender/internal/catalog"
	"book-recommender/internal/common/config"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/metrics"
	"book-recommender/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "book-recommender/recommend"

type Config struct {
	MaxResultsPerQuery int
	CandidateCap       int
	MinAccepted        int
	MaxRecommendations int
	EnrichCandidates   bool
}

// DefaultConfig: 10 results per query, 40 candidates, 5 unconditional picks,
// 10 recommendations, enrichment on.
func DefaultConfig() Config {
	return Config{
		MaxResultsPerQuery: 10,
		CandidateCap:       40,
		MinAccepted:        5,
		MaxRecommendations: 10,
		EnrichCandidates:   true,
	}
}

// ConfigFrom maps the recommendation section of the app config, falling back
// to defaults for unset values.
func ConfigFrom(rc config.RecommendationConfig) Config {
	cfg := DefaultConfig()
	if rc.MaxResultsPerQuery > 0 {
		cfg.MaxResultsPerQuery = rc.MaxResultsPerQuery
	}
	if rc.CandidateCap > 0 {
		cfg.CandidateCap = rc.CandidateCap
	}
	if rc.MinAccepted > 0 {
		cfg.MinAccepted = rc.MinAccepted
	}
	if rc.MaxRecommendations > 0 {
		cfg.MaxRecommendations = rc.MaxRecommendations
	}
	cfg.EnrichCandidates = rc.EnrichCandidates
	return cfg
}

// RunRecorder receives one observation per finished run.
type RunRecorder interface {
	RecordRecommendation(ctx context.Context, status string, duration time.Duration, results int)
}

// Result is the outcome of one run. Recommendations are ordered best first.
// DescriptionUpdates are for the caller to persist.
type Result struct {
	RunID              string                     `json:"runId"`
	Recommendations    []models.ScoredBook        `json:"recommendations"`
	DescriptionUpdates []models.DescriptionUpdate `json:"descriptionUpdates,omitempty"`
	CandidateCount     int                        `json:"candidateCount"`
}

// Books returns the recommended books without their scores.
func (r *Result) Books() []models.Book {
	books := make([]models.Book, 0, len(r.Recommendations))
	for _, sb := range r.Recommendations {
		books = append(books, sb.Book)
	}
	return books
}

type Engine struct {
	extractor *Extractor
	generator *Generator
	cfg       Config
	logger    logger.Logger
	tracer    trace.Tracer
	recorder  RunRecorder
	now       func() time.Time
}

type Option func(*Engine)

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func WithRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func NewEngine(cat catalog.Catalog, cfg Config, log logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"component": "recommend"})

	e := &Engine{
		extractor: NewExtractor(cat, log),
		generator: NewGenerator(cat, GeneratorConfig{
			MaxResultsPerQuery: cfg.MaxResultsPerQuery,
			CandidateCap:       cfg.CandidateCap,
			Enrich:             cfg.EnrichCandidates,
		}, log),
		cfg:    cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend runs the whole pipeline for one favorite set. Empty favorites or
// an empty candidate pool give an empty result. Catalog trouble only shrinks
// the result; the returned error is non-nil only when ctx ends mid-run.
func (e *Engine) Recommend(ctx context.Context, favorites []models.Favorite) (*Result, error) {
	start := e.now()
	res := &Result{
		RunID:           uuid.NewString(),
		Recommendations: []models.ScoredBook{},
	}
	log := e.logger.WithFields(map[string]interface{}{"runId": res.RunID})

	ctx, span := e.tracer.Start(ctx, "recommend.run", trace.WithAttributes(
		attribute.String("run.id", res.RunID),
		attribute.Int("favorites.count", len(favorites)),
	))
	defer span.End()

	if len(favorites) == 0 {
		log.Info("no favorites, nothing to recommend", nil)
		e.finish(ctx, res, "empty", start)
		return res, nil
	}

	features, favoriteIDs, updates := e.extract(ctx, favorites)
	res.DescriptionUpdates = updates

	pool, err := e.candidates(ctx, favoriteIDs, features)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.finish(ctx, res, "cancelled", start)
		return res, err
	}
	res.CandidateCount = len(pool)
	metrics.CandidatePoolSize.Observe(float64(len(pool)))

	if len(pool) == 0 {
		log.Info("no candidates found", map[string]interface{}{"favorites": len(favorites)})
		e.finish(ctx, res, "empty", start)
		return res, nil
	}

	scored := e.score(ctx, features, pool)
	res.Recommendations = e.rank(ctx, scored)

	log.Info("recommendation run finished", map[string]interface{}{
		"favorites":       len(favorites),
		"candidates":      len(pool),
		"recommendations": len(res.Recommendations),
		"updates":         len(updates),
		"durationMs":      e.now().Sub(start).Milliseconds(),
	})
	e.finish(ctx, res, "ok", start)
	return res, nil
}

func (e *Engine) extract(ctx context.Context, favorites []models.Favorite) ([]models.Features, []string, []models.DescriptionUpdate) {
	ctx, span := e.tracer.Start(ctx, "recommend.extract")
	defer span.End()

	features := make([]models.Features, 0, len(favorites))
	ids := make([]string, 0, len(favorites))
	var updates []models.DescriptionUpdate
	for _, fav := range favorites {
		f, update := e.extractor.Extract(ctx, fav)
		features = append(features, f)
		ids = append(ids, fav.BookID)
		if update != nil {
			updates = append(updates, *update)
		}
	}
	span.SetAttributes(attribute.Int("updates.count", len(updates)))
	return features, ids, updates
}

func (e *Engine) candidates(ctx context.Context, favoriteIDs []string, features []models.Features) ([]models.Book, error) {
	ctx, span := e.tracer.Start(ctx, "recommend.candidates")
	defer span.End()

	pool, err := e.generator.Generate(ctx, favoriteIDs, features)
	span.SetAttributes(attribute.Int("candidates.count", len(pool)))
	return pool, err
}

func (e *Engine) score(ctx context.Context, features []models.Features, pool []models.Book) []models.ScoredBook {
	_, span := e.tracer.Start(ctx, "recommend.score")
	defer span.End()

	scored := make([]models.ScoredBook, 0, len(pool))
	for _, b := range pool {
		scored = append(scored, models.ScoredBook{Book: b, Score: Aggregate(features, b)})
	}
	return scored
}

func (e *Engine) rank(ctx context.Context, scored []models.ScoredBook) []models.ScoredBook {
	_, span := e.tracer.Start(ctx, "recommend.rank")
	defer span.End()

	ranked := Rank(scored, e.cfg.MinAccepted, e.cfg.MaxRecommendations)
	span.SetAttributes(attribute.Int("recommendations.count", len(ranked)))
	return ranked
}

func (e *Engine) finish(ctx context.Context, res *Result, status string, start time.Time) {
	metrics.RecommendationsReturned.Observe(float64(len(res.Recommendations)))
	if e.recorder != nil {
		e.recorder.RecordRecommendation(ctx, status, e.now().Sub(start), len(res.Recommendations))
	}
}
