package recommend

import (
	"context"
	"sync"
	"testing"
	"time"

	"book-recommender/internal/common/config"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordedRun struct {
	status  string
	results int
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []recordedRun
}

func (r *fakeRecorder) RecordRecommendation(_ context.Context, status string, _ time.Duration, results int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, recordedRun{status: status, results: results})
}

// tolkienCatalog: one Tolkien favorite, a same-category book by another
// author (A) and an unrelated book with no description (B).
func tolkienCatalog() *fakeCatalog {
	cat := newFakeCatalog()
	cat.books["hobbit"] = book("hobbit", []string{"J.R.R. Tolkien"}, []string{"Fantasy"}, "A hobbit goes on a quest")

	cat.results[`inauthor:"J.R.R. Tolkien"`] = []models.Book{
		book("hobbit", []string{"J.R.R. Tolkien"}, []string{"Fantasy"}, "A hobbit goes on a quest"),
	}
	cat.results["subject:Fantasy"] = []models.Book{
		book("A", []string{"Ursula K. Le Guin"}, []string{"Fantasy"}, "An epic quest in a magical land"),
	}
	cat.results["subject:fiction orderBy=newest"] = []models.Book{
		book("B", []string{"Jane Doe"}, []string{"History"}, ""),
	}
	return cat
}

func tolkienFavorites() []models.Favorite {
	return []models.Favorite{{
		ID:          1,
		UserID:      "user-1",
		BookID:      "hobbit",
		Title:       "The Hobbit",
		Authors:     "J.R.R. Tolkien",
		Description: "A hobbit goes on a quest",
	}}
}

func TestEngine_Recommend_TolkienScenario(t *testing.T) {
	cat := tolkienCatalog()
	engine := NewEngine(cat, DefaultConfig(), logger.NewTestLogger(t))

	res, err := engine.Recommend(context.Background(), tolkienFavorites())

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.CandidateCount)
	require.Len(t, res.Recommendations, 2)

	assert.Equal(t, "A", res.Recommendations[0].Book.ID)
	assert.Equal(t, "B", res.Recommendations[1].Book.ID)
	assert.Greater(t, res.Recommendations[0].Score, res.Recommendations[1].Score)
	assert.InDelta(t, 0.1, res.Recommendations[1].Score, 1e-9)

	for _, b := range res.Books() {
		assert.NotEqual(t, "hobbit", b.ID)
	}
	assert.Empty(t, res.DescriptionUpdates)
}

func TestEngine_Recommend_EmitsDescriptionUpdates(t *testing.T) {
	cat := tolkienCatalog()
	favs := tolkienFavorites()
	favs[0].Description = ""

	engine := NewEngine(cat, DefaultConfig(), logger.NewTestLogger(t))
	res, err := engine.Recommend(context.Background(), favs)

	require.NoError(t, err)
	require.Len(t, res.DescriptionUpdates, 1)
	assert.Equal(t, models.DescriptionUpdate{FavoriteID: 1, Description: "A hobbit goes on a quest"}, res.DescriptionUpdates[0])
}

func TestEngine_Recommend_NoFavorites(t *testing.T) {
	cat := newFakeCatalog()
	recorder := &fakeRecorder{}
	engine := NewEngine(cat, DefaultConfig(), logger.NewTestLogger(t), WithRecorder(recorder))

	res, err := engine.Recommend(context.Background(), nil)

	require.NoError(t, err)
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)
	assert.Empty(t, cat.searchTerms())
	assert.Equal(t, []recordedRun{{status: "empty"}}, recorder.runs)
}

func TestEngine_Recommend_NoCandidates(t *testing.T) {
	cat := newFakeCatalog()
	engine := NewEngine(cat, DefaultConfig(), logger.NewTestLogger(t))

	res, err := engine.Recommend(context.Background(), tolkienFavorites())

	require.NoError(t, err)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, 0, res.CandidateCount)
}

func TestEngine_Recommend_NeverReturnsFavoritesOrDuplicates(t *testing.T) {
	cat := newFakeCatalog()
	favs := []models.Favorite{
		{ID: 1, BookID: "f1", Authors: "Shared Author"},
		{ID: 2, BookID: "f2", Authors: "Shared Author"},
	}
	mixed := append(manyBooks("x", 8), book("f1", []string{"Shared Author"}, nil, ""), book("f2", nil, nil, ""))
	cat.results[`inauthor:"Shared Author"`] = mixed
	for _, q := range DiscoveryQueries {
		cat.results[q.String()] = append(manyBooks("x", 4), book("f2", nil, nil, ""))
	}

	engine := NewEngine(cat, DefaultConfig(), logger.NewTestLogger(t))
	res, err := engine.Recommend(context.Background(), favs)

	require.NoError(t, err)
	seen := map[string]bool{}
	for _, b := range res.Books() {
		assert.NotContains(t, []string{"f1", "f2"}, b.ID)
		assert.False(t, seen[b.ID], "duplicate %s", b.ID)
		seen[b.ID] = true
	}
	assert.LessOrEqual(t, len(res.Recommendations), 10)
	assert.GreaterOrEqual(t, len(res.Recommendations), 5)
}

func TestEngine_Recommend_CancelledContext(t *testing.T) {
	cat := tolkienCatalog()
	recorder := &fakeRecorder{}
	engine := NewEngine(cat, DefaultConfig(), logger.NewTestLogger(t), WithRecorder(recorder))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := engine.Recommend(ctx, tolkienFavorites())

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, "cancelled", recorder.runs[0].status)
}

func TestEngine_Recommend_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	engine := NewEngine(tolkienCatalog(), DefaultConfig(), logger.NewTestLogger(t),
		WithTracer(tp.Tracer("test")))

	_, err := engine.Recommend(context.Background(), tolkienFavorites())
	require.NoError(t, err)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{
		"recommend.extract",
		"recommend.candidates",
		"recommend.score",
		"recommend.rank",
		"recommend.run",
	}, names)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.RecommendationConfig{CandidateCap: 20, EnrichCandidates: false})

	assert.Equal(t, 20, cfg.CandidateCap)
	assert.Equal(t, 10, cfg.MaxResultsPerQuery)
	assert.Equal(t, 5, cfg.MinAccepted)
	assert.Equal(t, 10, cfg.MaxRecommendations)
	assert.False(t, cfg.EnrichCandidates)
}
