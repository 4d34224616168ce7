// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"book-recommender/internal/catalog"
	"book-recommender/internal/common/camunda"
	"book-recommender/internal/common/config"
	"book-recommender/internal/common/database"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/observability"
	"book-recommender/internal/common/validation"
	"book-recommender/internal/recommend"
	"book-recommender/internal/store"
	"book-recommender/pkg/registry"

	rb "book-recommender/internal/workers/books/recommend-books"
	sb "book-recommender/internal/workers/books/search-books"
	af "book-recommender/internal/workers/favorites/add-favorite"
	lf "book-recommender/internal/workers/favorites/list-favorites"
	rf "book-recommender/internal/workers/favorites/remove-favorite"
	cp "book-recommender/internal/workers/playlists/create-playlist"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// workerTimeout prefers the configured job timeout over the worker's default.
func workerTimeout(wcfg config.WorkerConfig, fallback time.Duration) time.Duration {
	if wcfg.Timeout > 0 {
		return config.GetDuration(wcfg.Timeout)
	}
	return fallback
}

// searchBooksConfig applies the configured job timeout and result cap.
func searchBooksConfig(cfg *config.Config) *sb.Config {
	c := sb.LoadConfig()
	c.Timeout = workerTimeout(cfg.Workers[sb.TaskType], c.Timeout)
	if cfg.Recommendation.SearchLimit > 0 {
		c.MaxResults = cfg.Recommendation.SearchLimit
	}
	return c
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Activity registry and input schemas ---
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("activity registry schemas invalid", zap.Error(err))
	}

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ClientConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := store.EnsureSchema(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry (shared catalog limiter) ---
	var redisClient redis.Cmdable
	if cfg.Catalog.SharedLimiter {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		redisClient = rc.Client
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch with retry (catalog mirror) ---
	var esClient *elasticsearch.Client
	if cfg.Catalog.Provider == "elasticsearch" {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if ok, err := es.IndexExists(ctx); err != nil || !ok {
			zapLog.Warn("catalog mirror index missing", zap.String("index", es.Index), zap.Error(err))
		}
		esClient = es.Client
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Catalog and engine ---
	books, err := catalog.New(cfg.Catalog, cfg.Database.Elasticsearch.Index, catalog.Deps{
		Redis:         redisClient,
		Elasticsearch: esClient,
		Logger:        log,
	})
	if err != nil {
		zapLog.Fatal("catalog setup failed", zap.Error(err))
	}
	engine := recommend.NewEngine(books, recommend.ConfigFrom(cfg.Recommendation), log,
		recommend.WithTracer(obs.Tracer()),
		recommend.WithRecorder(obs),
	)
	favorites := store.NewFavoriteStore(pg.DB)

	// --- Register Workers ---
	client := zeebe.GetClient()
	var workers []*camunda.CamundaWorker
	register := func(taskType string, handle camunda.HandlerFunc) {
		if w := camunda.StartWorker(client, taskType, cfg.Workers[taskType], handle, log); w != nil {
			workers = append(workers, w)
		}
	}

	searchCfg := searchBooksConfig(cfg)
	register(sb.TaskType, sb.NewHandler(searchCfg, books, validator, log).Handle)

	recommendCfg := rb.LoadConfig()
	recommendCfg.Timeout = workerTimeout(cfg.Workers[rb.TaskType], recommendCfg.Timeout)
	register(rb.TaskType, rb.NewHandler(recommendCfg, favorites, engine, validator, log).Handle)

	addCfg := af.LoadConfig()
	addCfg.Timeout = workerTimeout(cfg.Workers[af.TaskType], addCfg.Timeout)
	register(af.TaskType, af.NewHandler(addCfg, favorites, validator, log).Handle)

	removeCfg := rf.LoadConfig()
	removeCfg.Timeout = workerTimeout(cfg.Workers[rf.TaskType], removeCfg.Timeout)
	register(rf.TaskType, rf.NewHandler(removeCfg, favorites, validator, log).Handle)

	listCfg := lf.LoadConfig()
	listCfg.Timeout = workerTimeout(cfg.Workers[lf.TaskType], listCfg.Timeout)
	register(lf.TaskType, lf.NewHandler(listCfg, favorites, validator, log).Handle)

	playlistCfg := cp.LoadConfig()
	playlistCfg.Timeout = workerTimeout(cfg.Workers[cp.TaskType], playlistCfg.Timeout)
	register(cp.TaskType, cp.NewHandler(playlistCfg, pg.DB, engine, validator, log).Handle)

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", err)
			return
		}
		if err := pg.Ping(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", err)
			return
		}
		writeStatus(w, http.StatusOK, "ready", nil)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.Server.Address, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(10 * time.Second)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string, err error) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if err != nil {
		body["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
