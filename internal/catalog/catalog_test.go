package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"book-recommender/internal/common/logger"
	"book-recommender/internal/models"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================================
// Test Helpers
// ==========================================

type providerStep struct {
	books []models.Book
	book  models.Book
	err   error
}

// scriptedProvider replays steps in order and repeats the last one.
type scriptedProvider struct {
	mu      sync.Mutex
	steps   []providerStep
	calls   int
	callsAt []time.Time
	clock   Clock
	queries []Query
	onCall  func()
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) next() providerStep {
	if p.onCall != nil {
		p.onCall()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.clock != nil {
		p.callsAt = append(p.callsAt, p.clock.Now())
	}
	if len(p.steps) == 0 {
		return providerStep{}
	}
	idx := p.calls - 1
	if idx >= len(p.steps) {
		idx = len(p.steps) - 1
	}
	return p.steps[idx]
}

func (p *scriptedProvider) Search(_ context.Context, q Query, _ int) ([]models.Book, error) {
	p.mu.Lock()
	p.queries = append(p.queries, q)
	p.mu.Unlock()
	s := p.next()
	return s.books, s.err
}

func (p *scriptedProvider) Lookup(_ context.Context, _ string) (models.Book, error) {
	s := p.next()
	return s.book, s.err
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testBook(id string) models.Book {
	return models.Book{
		ID:        id,
		Title:     "Book " + id,
		Authors:   []string{"Author " + id},
		Thumbnail: "http://covers.example/" + id + ".jpg",
	}
}

func newTestAdapter(t *testing.T, provider *scriptedProvider, clock *fakeClock, cfg AdapterConfig) *Adapter {
	t.Helper()
	provider.clock = clock
	return NewAdapter(provider, NewLocalLimiter(time.Second, clock), clock, cfg, logger.NewTestLogger(t))
}

// ==========================================
// Search
// ==========================================

func TestAdapter_Search_Success(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{
		{books: []models.Book{testBook("a"), testBook("b")}},
	}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	books, err := adapter.Search(context.Background(), AuthorQuery("J.R.R. Tolkien"), 10)

	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "a", books[0].ID)
	assert.Equal(t, `inauthor:"J.R.R. Tolkien"`, provider.queries[0].Terms)
}

func TestAdapter_Search_RetriesOnceAfterThrottle(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{
		{err: ErrThrottled},
		{books: []models.Book{testBook("a")}},
	}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	books, err := adapter.Search(context.Background(), SubjectQuery("Fantasy"), 10)

	require.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, 2, provider.Calls())
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Sleeps())
}

func TestAdapter_Search_GivesUpAfterMaxAttempts(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{{err: ErrThrottled}}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	books, err := adapter.Search(context.Background(), SubjectQuery("Fantasy"), 10)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThrottled)
	assert.NotNil(t, books)
	assert.Empty(t, books)
	assert.Equal(t, 3, provider.Calls())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, clock.Sleeps())
}

func TestAdapter_Search_UpstreamFailureIsUnavailable(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{{err: errors.New("connection reset")}}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	books, err := adapter.Search(context.Background(), SubjectQuery("Fantasy"), 10)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, books)
	assert.Equal(t, 1, provider.Calls())
}

func TestAdapter_Search_DropsBooksWithoutThumbnail(t *testing.T) {
	clock := newFakeClock()
	noCover := testBook("b")
	noCover.Thumbnail = ""
	noID := testBook("")
	provider := &scriptedProvider{steps: []providerStep{
		{books: []models.Book{testBook("a"), noCover, noID, testBook("c")}},
	}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	books, err := adapter.Search(context.Background(), SubjectQuery("Fantasy"), 10)

	require.NoError(t, err)
	require.Len(t, books, 2)
	for _, b := range books {
		assert.NotEmpty(t, b.Thumbnail)
	}
	assert.Equal(t, "a", books[0].ID)
	assert.Equal(t, "c", books[1].ID)
}

func TestAdapter_Search_TruncatesToMaxResults(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{
		{books: []models.Book{testBook("a"), testBook("b"), testBook("c")}},
	}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	books, err := adapter.Search(context.Background(), SubjectQuery("Fantasy"), 2)

	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestAdapter_Search_BlankQuerySkipsUpstream(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	books, err := adapter.Search(context.Background(), Query{Terms: "   "}, 10)

	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Equal(t, 0, provider.Calls())
}

func TestAdapter_ConsecutiveCallsAreSpaced(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{{books: []models.Book{testBook("a")}}}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := adapter.Search(ctx, SubjectQuery("Fantasy"), 10)
		require.NoError(t, err)
	}

	require.Len(t, provider.callsAt, 4)
	for i := 1; i < len(provider.callsAt); i++ {
		assert.GreaterOrEqual(t, provider.callsAt[i].Sub(provider.callsAt[i-1]), time.Second)
	}
}

func TestAdapter_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{{err: errors.New("502 bad gateway")}}}
	cfg := DefaultAdapterConfig()
	cfg.FailureThreshold = 2
	cfg.OpenTimeout = time.Minute
	adapter := newTestAdapter(t, provider, clock, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := adapter.Search(ctx, SubjectQuery("Fantasy"), 10)
		assert.ErrorIs(t, err, ErrUnavailable)
	}

	books, err := adapter.Search(ctx, SubjectQuery("Fantasy"), 10)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, books)
	assert.Equal(t, 2, provider.Calls())
}

func TestAdapter_ThrottlingDoesNotTripBreaker(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{{err: ErrThrottled}}}
	cfg := DefaultAdapterConfig()
	cfg.FailureThreshold = 2
	cfg.MaxAttempts = 1
	adapter := newTestAdapter(t, provider, clock, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := adapter.Search(ctx, SubjectQuery("Fantasy"), 10)
		assert.ErrorIs(t, err, ErrThrottled)
	}
	assert.Equal(t, 5, provider.Calls())
}

func TestAdapter_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	provider := &scriptedProvider{
		steps:  []providerStep{{err: context.Canceled}},
		onCall: cancel,
	}
	cfg := DefaultAdapterConfig()
	cfg.FailureThreshold = 1
	adapter := newTestAdapter(t, provider, clock, cfg)

	books, err := adapter.Search(ctx, SubjectQuery("Fantasy"), 10)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, books)
	assert.Equal(t, gobreaker.StateClosed, adapter.breaker.State())
}

func TestAdapter_UpstreamTimeoutKeepsCause(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{{err: context.DeadlineExceeded}}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	_, err := adapter.Search(context.Background(), SubjectQuery("Fantasy"), 10)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ==========================================
// Lookup
// ==========================================

func TestAdapter_Lookup_Success(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{steps: []providerStep{{book: testBook("hobbit")}}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	book, err := adapter.Lookup(context.Background(), "hobbit")

	require.NoError(t, err)
	assert.Equal(t, "hobbit", book.ID)
}

func TestAdapter_Lookup_FailuresBecomeNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "missing record", err: ErrNotFound},
		{name: "transport error", err: errors.New("dial tcp: i/o timeout")},
		{name: "throttled every attempt", err: ErrThrottled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			provider := &scriptedProvider{steps: []providerStep{{err: tt.err}}}
			adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

			_, err := adapter.Lookup(context.Background(), "missing")

			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestAdapter_Lookup_WithoutThumbnailIsNotFound(t *testing.T) {
	clock := newFakeClock()
	book := testBook("bare")
	book.Thumbnail = ""
	provider := &scriptedProvider{steps: []providerStep{{book: book}}}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	_, err := adapter.Lookup(context.Background(), "bare")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdapter_Lookup_BlankIDSkipsUpstream(t *testing.T) {
	clock := newFakeClock()
	provider := &scriptedProvider{}
	adapter := newTestAdapter(t, provider, clock, DefaultAdapterConfig())

	_, err := adapter.Lookup(context.Background(), "")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, provider.Calls())
}

func TestQuery_String(t *testing.T) {
	q := Query{Terms: "subject:fiction", OrderBy: OrderNewest, Filter: FilterFreeEbooks}
	assert.Equal(t, "subject:fiction orderBy=newest filter=free-ebooks", q.String())
	assert.Equal(t, `inauthor:"Bob Smith"`, AuthorQuery(`Bob "Smith"`).Terms)
}
