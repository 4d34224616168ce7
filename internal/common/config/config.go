// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Catalog        CatalogConfig           `mapstructure:"catalog"`
	Recommendation RecommendationConfig    `mapstructure:"recommendation"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	Logging        LoggingConfig           `mapstructure:"logging"`
	Server         ServerConfig            `mapstructure:"server"`
	Registry       RegistryConfig          `mapstructure:"registry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	UsePlaintext   bool   `mapstructure:"use_plaintext"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig is only required when the catalog provider is "elasticsearch".
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// CatalogConfig configures the upstream book catalog adapter.
type CatalogConfig struct {
	Provider         string `mapstructure:"provider"` // googlebooks | openlibrary | elasticsearch
	BaseURL          string `mapstructure:"base_url"`
	APIKey           string `mapstructure:"api_key"`
	CoverBaseURL     string `mapstructure:"cover_base_url"`
	Timeout          int    `mapstructure:"timeout"`           // milliseconds, per call
	MinInterval      int    `mapstructure:"min_interval"`      // milliseconds between upstream calls
	ThrottleCooldown int    `mapstructure:"throttle_cooldown"` // milliseconds
	MaxAttempts      int    `mapstructure:"max_attempts"`
	SharedLimiter    bool   `mapstructure:"shared_limiter"` // coordinate spacing through redis
	LimiterKey       string `mapstructure:"limiter_key"`

	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker around upstream catalog calls.
type BreakerConfig struct {
	FailureThreshold uint32 `mapstructure:"failure_threshold"`
	OpenTimeout      int    `mapstructure:"open_timeout"` // milliseconds
	HalfOpenRequests uint32 `mapstructure:"half_open_requests"`
}

// RecommendationConfig carries the engine's tunables.
type RecommendationConfig struct {
	MaxResultsPerQuery int  `mapstructure:"max_results_per_query"`
	CandidateCap       int  `mapstructure:"candidate_cap"`
	MinAccepted        int  `mapstructure:"min_accepted"`
	MaxRecommendations int  `mapstructure:"max_recommendations"`
	EnrichCandidates   bool `mapstructure:"enrich_candidates"`
	SearchLimit        int  `mapstructure:"search_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig is the health/metrics listener.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// RegistryConfig points at the activity registry that carries worker input schemas.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}
