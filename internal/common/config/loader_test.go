package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: books
    user: books
workers:
  recommend-books:
    enabled: true
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "googlebooks", cfg.Catalog.Provider)
	assert.Equal(t, "https://www.googleapis.com/books/v1", cfg.Catalog.BaseURL)
	assert.Equal(t, 1000, cfg.Catalog.MinInterval)
	assert.Equal(t, 5000, cfg.Catalog.ThrottleCooldown)
	assert.Equal(t, 3, cfg.Catalog.MaxAttempts)
	assert.Equal(t, 10000, cfg.Catalog.Timeout)

	assert.Equal(t, 10, cfg.Recommendation.MaxResultsPerQuery)
	assert.Equal(t, 40, cfg.Recommendation.CandidateCap)
	assert.Equal(t, 5, cfg.Recommendation.MinAccepted)
	assert.Equal(t, 10, cfg.Recommendation.MaxRecommendations)
	assert.True(t, cfg.Recommendation.EnrichCandidates)

	wc := cfg.Workers["recommend-books"]
	assert.True(t, wc.Enabled)
	assert.Equal(t, 5, wc.MaxJobsActive)
	assert.Equal(t, 30000, wc.Timeout)
	assert.Equal(t, 3, wc.MaxRetries)

	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadFromFile_OpenLibraryDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
catalog:
  provider: openlibrary
`))
	require.NoError(t, err)

	assert.Equal(t, "https://openlibrary.org", cfg.Catalog.BaseURL)
	assert.Equal(t, "https://covers.openlibrary.org", cfg.Catalog.CoverBaseURL)
	assert.Equal(t, "catalog:limiter:openlibrary", cfg.Catalog.LimiterKey)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_BOOKS_KEY", "secret-key")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
catalog:
  api_key: ${TEST_BOOKS_KEY}
`))
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.Catalog.APIKey)
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name:    "unknown provider",
			body:    minimalConfig + "catalog:\n  provider: amazon\n",
			wantErr: `unknown catalog.provider "amazon"`,
		},
		{
			name:    "elasticsearch without addresses",
			body:    minimalConfig + "catalog:\n  provider: elasticsearch\n",
			wantErr: "database.elasticsearch.addresses is required",
		},
		{
			name:    "shared limiter without redis",
			body:    minimalConfig + "catalog:\n  shared_limiter: true\n",
			wantErr: "database.redis.address is required",
		},
		{
			name:    "min accepted above max",
			body:    minimalConfig + "recommendation:\n  min_accepted: 12\n  max_recommendations: 10\n",
			wantErr: "recommendation.min_accepted cannot exceed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestGetWorkerConfig_FallsBackToDefaults(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"search-books": {Enabled: false, MaxJobsActive: 1, Timeout: 100},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "search-books"))
	assert.True(t, IsWorkerEnabled(cfg, "create-playlist"))

	wc := GetWorkerConfig(cfg, "create-playlist")
	assert.True(t, wc.Enabled)
	assert.Equal(t, 30000, wc.Timeout)
}

// A create-playlist job without recommendations runs a full recommendation
// for one favorite: one favorite lookup, an author and a subject query, three
// discovery queries and one enrichment lookup per pooled candidate, each
// spaced by the catalog's minimum interval.
func TestShippedConfig_PlaylistTimeoutCoversRecommendationRun(t *testing.T) {
	t.Setenv("DB_USER", "books")

	cfg, err := LoadFromFile(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	const favorites, discoveryQueries = 1, 3
	calls := favorites + 2*favorites + discoveryQueries
	if cfg.Recommendation.EnrichCandidates {
		calls += cfg.Recommendation.CandidateCap
	}
	needed := time.Duration(calls) * GetDuration(cfg.Catalog.MinInterval)

	for _, worker := range []string{"create-playlist", "recommend-books"} {
		wc, ok := cfg.Workers[worker]
		require.True(t, ok, worker)
		assert.GreaterOrEqual(t, GetDuration(wc.Timeout), needed, worker)
	}
}
