// internal/workers/books/search-books/handler.go
package searchbooks

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"book-recommender/internal/catalog"
	"book-recommender/internal/common/camunda"
	"book-recommender/internal/common/errors"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/metrics"
	"book-recommender/internal/common/validation"
	"book-recommender/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "search-books"

// Searcher is the part of the catalog this worker uses.
type Searcher interface {
	Search(ctx context.Context, q catalog.Query, maxResults int) ([]models.Book, error)
}

type Handler struct {
	config       *Config
	catalog      Searcher
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, cat Searcher, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		catalog:      cat,
		validator:    validator,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.ParseVariables(job, h.validator, TaskType, &input); err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	query := BuildQuery(input)
	if query.Terms == "" {
		return nil, errors.NewSearchQueryEmptyError()
	}

	limit := input.MaxResults
	if limit <= 0 || limit > h.config.MaxResults {
		limit = h.config.MaxResults
	}

	books, err := h.catalog.Search(ctx, query, limit)
	if err != nil {
		if stderrors.Is(err, catalog.ErrThrottled) {
			return nil, errors.NewCatalogThrottledError(err).WithMetadata("query", query.Terms)
		}
		return nil, errors.NewCatalogUnavailableError(err).WithMetadata("query", query.Terms)
	}

	h.logger.Info("search finished", map[string]interface{}{
		"query":   query.Terms,
		"results": len(books),
	})

	return &Output{
		Books:        books,
		TotalResults: len(books),
		Query:        query.Terms,
	}, nil
}

// BuildQuery joins the non-empty fields into a field-scoped query such as
// `intitle:dune inauthor:herbert`.
func BuildQuery(input *Input) catalog.Query {
	var parts []string
	if t := strings.TrimSpace(input.Title); t != "" {
		parts = append(parts, "intitle:"+t)
	}
	if a := strings.TrimSpace(input.Author); a != "" {
		parts = append(parts, "inauthor:"+a)
	}
	if g := strings.TrimSpace(input.Genre); g != "" {
		parts = append(parts, "subject:"+g)
	}
	return catalog.Query{Terms: strings.Join(parts, " ")}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
