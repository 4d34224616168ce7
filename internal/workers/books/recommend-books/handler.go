// internal/workers/books/recommend-books/handler.go
package recommendbooks

import (
	"context"
	"time"

	"book-recommender/internal/common/camunda"
	"book-recommender/internal/common/errors"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/metrics"
	"book-recommender/internal/common/validation"
	"book-recommender/internal/models"
	"book-recommender/internal/recommend"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "recommend-books"

type FavoriteStore interface {
	ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error)
	ApplyDescriptionUpdates(ctx context.Context, updates []models.DescriptionUpdate) (int, error)
}

type Recommender interface {
	Recommend(ctx context.Context, favorites []models.Favorite) (*recommend.Result, error)
}

type Handler struct {
	config       *Config
	favorites    FavoriteStore
	engine       Recommender
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, favorites FavoriteStore, engine Recommender, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		favorites:    favorites,
		engine:       engine,
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
	favorites, err := h.favorites.ListFavorites(ctx, input.UserID)
	if err != nil {
		return nil, errors.NewFavoritesLoadFailedError(input.UserID, err)
	}

	result, err := h.engine.Recommend(ctx, favorites)
	if err != nil {
		return nil, errors.NewRecommendationFailedError(err).WithMetadata("userId", input.UserID)
	}

	// A failed write only loses a richer description; the recommendations stand.
	updated := 0
	if len(result.DescriptionUpdates) > 0 {
		updated, err = h.favorites.ApplyDescriptionUpdates(ctx, result.DescriptionUpdates)
		if err != nil {
			h.logger.Warn("failed to store refreshed descriptions", map[string]interface{}{
				"userId":  input.UserID,
				"applied": updated,
				"pending": len(result.DescriptionUpdates),
				"error":   err.Error(),
			})
		}
	}

	h.logger.Info("recommendations ready", map[string]interface{}{
		"userId":          input.UserID,
		"runId":           result.RunID,
		"favorites":       len(favorites),
		"recommendations": len(result.Recommendations),
	})

	return &Output{
		RunID:               result.RunID,
		Recommendations:     result.Recommendations,
		FavoriteCount:       len(favorites),
		CandidateCount:      result.CandidateCount,
		DescriptionsUpdated: updated,
	}, nil
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
