// internal/workers/playlists/create-playlist/handler.go
package createplaylist

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"book-recommender/internal/common/camunda"
	"book-recommender/internal/common/database"
	"book-recommender/internal/common/errors"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/metrics"
	"book-recommender/internal/common/textutil"
	"book-recommender/internal/common/validation"
	"book-recommender/internal/models"
	"book-recommender/internal/recommend"
	"book-recommender/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "create-playlist"

// maxRecommendations matches the ranker's cap.
const maxRecommendations = 10

type Recommender interface {
	Recommend(ctx context.Context, favorites []models.Favorite) (*recommend.Result, error)
}

type Handler struct {
	config       *Config
	db           *sql.DB
	engine       Recommender
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, db *sql.DB, engine Recommender, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
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

// execute stores the favorites as source entries followed by the
// recommendations, then clears the favorites. All writes share one
// transaction so a failed job leaves the favorites in place for the retry.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	name := strings.TrimSpace(input.Name)
	if input.UserID == "" || name == "" {
		return nil, errors.NewInvalidInputError("userId and name are required")
	}

	favorites, err := store.NewFavoriteStore(h.db).ListFavorites(ctx, input.UserID)
	if err != nil {
		return nil, errors.NewFavoritesLoadFailedError(input.UserID, err)
	}
	if len(favorites) == 0 {
		return nil, errors.NewInvalidInputError("no favorites to build a playlist from").
			WithMetadata("userId", input.UserID)
	}

	recs, err := h.recommendations(ctx, input, favorites)
	if err != nil {
		return nil, err
	}

	output := &Output{SourceCount: len(favorites), RecommendedCount: len(recs)}
	err = database.InTx(ctx, h.db, func(tx *sql.Tx) error {
		playlists := store.NewPlaylistStore(h.db).WithTx(tx)

		id, err := playlists.CreatePlaylist(ctx, input.UserID, name)
		if err != nil {
			return err
		}
		output.PlaylistID = id

		for _, fav := range favorites {
			if err := playlists.AddBookToPlaylist(ctx, id, favoriteBook(fav), true); err != nil {
				return err
			}
		}
		for _, rec := range recs {
			if err := playlists.AddBookToPlaylist(ctx, id, rec.Book, false); err != nil {
				return err
			}
		}

		cleared, err := store.NewFavoriteStore(h.db).WithTx(tx).ClearFavorites(ctx, input.UserID)
		if err != nil {
			return err
		}
		output.FavoritesCleared = cleared
		return nil
	})
	if err != nil {
		return nil, errors.NewPlaylistCreateFailedError(err).WithMetadata("userId", input.UserID)
	}

	h.logger.Info("playlist created", map[string]interface{}{
		"userId":      input.UserID,
		"playlistId":  output.PlaylistID,
		"sources":     output.SourceCount,
		"recommended": output.RecommendedCount,
	})
	return output, nil
}

// recommendations prefers the list the user was shown. Without one the
// engine runs on the current favorites. Description updates from that run
// are dropped because the favorites are cleared in the same job.
func (h *Handler) recommendations(ctx context.Context, input *Input, favorites []models.Favorite) ([]models.ScoredBook, error) {
	if len(input.Recommendations) > 0 {
		return sanitize(input.Recommendations, favorites), nil
	}

	res, err := h.engine.Recommend(ctx, favorites)
	if err != nil {
		return nil, errors.NewRecommendationFailedError(err).WithMetadata("userId", input.UserID)
	}
	return res.Recommendations, nil
}

// sanitize drops favorites, blank ids and repeats from caller-supplied
// recommendations and caps the list.
func sanitize(recs []models.ScoredBook, favorites []models.Favorite) []models.ScoredBook {
	seen := make(map[string]struct{}, len(favorites)+len(recs))
	for _, f := range favorites {
		seen[f.BookID] = struct{}{}
	}

	out := make([]models.ScoredBook, 0, len(recs))
	for _, r := range recs {
		id := strings.TrimSpace(r.Book.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		r.Book.ID = id
		out = append(out, r)
		if len(out) == maxRecommendations {
			break
		}
	}
	return out
}

func favoriteBook(fav models.Favorite) models.Book {
	return models.Book{
		ID:          fav.BookID,
		Title:       fav.Title,
		Authors:     textutil.SplitList(fav.Authors),
		Thumbnail:   fav.Thumbnail,
		Description: fav.Description,
	}
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
