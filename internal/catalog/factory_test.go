package catalog

import (
	"testing"

	"book-recommender/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseCatalogConfig(provider string) config.CatalogConfig {
	return config.CatalogConfig{
		Provider:         provider,
		BaseURL:          "http://catalog.invalid",
		CoverBaseURL:     "http://covers.invalid",
		Timeout:          1000,
		MinInterval:      1000,
		ThrottleCooldown: 5000,
		MaxAttempts:      3,
		LimiterKey:       "catalog:limiter:" + provider,
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	for _, name := range []string{"googlebooks", "openlibrary"} {
		t.Run(name, func(t *testing.T) {
			adapter, err := New(baseCatalogConfig(name), "books", Deps{})
			require.NoError(t, err)
			assert.Equal(t, name, adapter.provider.Name())
			assert.IsType(t, &LocalLimiter{}, adapter.limiter)
		})
	}
}

func TestNew_SharedLimiterUsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := baseCatalogConfig("googlebooks")
	cfg.SharedLimiter = true

	adapter, err := New(cfg, "books", Deps{Redis: rdb})

	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, adapter.limiter)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(baseCatalogConfig("elasticsearch"), "books", Deps{})
	assert.Error(t, err)

	_, err = New(baseCatalogConfig("library-of-alexandria"), "books", Deps{})
	assert.Error(t, err)
}
