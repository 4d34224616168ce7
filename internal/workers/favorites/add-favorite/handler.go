// internal/workers/favorites/add-favorite/handler.go
package addfavorite

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"book-recommender/internal/common/camunda"
	"book-recommender/internal/common/errors"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/metrics"
	"book-recommender/internal/common/textutil"
	"book-recommender/internal/common/validation"
	"book-recommender/internal/models"
	"book-recommender/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "add-favorite"

type FavoriteStore interface {
	FavoriteExists(ctx context.Context, userID, bookID string) (bool, error)
	AddFavorite(ctx context.Context, fav *models.Favorite) error
}

type Handler struct {
	config       *Config
	favorites    FavoriteStore
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, favorites FavoriteStore, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		favorites:    favorites,
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
	fav, err := toFavorite(input)
	if err != nil {
		return nil, err
	}

	exists, err := h.favorites.FavoriteExists(ctx, fav.UserID, fav.BookID)
	if err != nil {
		return nil, errors.NewFavoriteUpdateFailedError(err)
	}
	if exists {
		return nil, errors.NewFavoriteDuplicateError(fav.BookID)
	}

	if err := h.favorites.AddFavorite(ctx, fav); err != nil {
		// Lost a race with a concurrent add of the same book.
		if stderrors.Is(err, store.ErrDuplicateFavorite) {
			return nil, errors.NewFavoriteDuplicateError(fav.BookID)
		}
		return nil, errors.NewFavoriteUpdateFailedError(err)
	}

	h.logger.Info("favorite added", map[string]interface{}{
		"userId":     fav.UserID,
		"bookId":     fav.BookID,
		"favoriteId": fav.ID,
	})

	return &Output{FavoriteID: fav.ID, Added: true}, nil
}

// toFavorite trims the input and joins the authors the way favorites store
// them. Title, authors and thumbnail are required.
func toFavorite(input *Input) (*models.Favorite, error) {
	authors := textutil.Unique(input.Authors)
	fav := &models.Favorite{
		UserID:      strings.TrimSpace(input.UserID),
		BookID:      strings.TrimSpace(input.BookID),
		Title:       strings.TrimSpace(input.Title),
		Authors:     strings.Join(authors, ", "),
		Thumbnail:   strings.TrimSpace(input.Thumbnail),
		Description: strings.TrimSpace(textutil.StripHTML(input.Description)),
	}

	var missing []string
	if fav.UserID == "" {
		missing = append(missing, "userId")
	}
	if fav.BookID == "" {
		missing = append(missing, "bookId")
	}
	if fav.Title == "" {
		missing = append(missing, "title")
	}
	if len(authors) == 0 {
		missing = append(missing, "authors")
	}
	if fav.Thumbnail == "" {
		missing = append(missing, "thumbnail")
	}
	if len(missing) > 0 {
		return nil, errors.NewInvalidInputError("missing " + strings.Join(missing, ", "))
	}
	return fav, nil
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
