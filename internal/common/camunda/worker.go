// internal/common/camunda/worker.go
package camunda

import (
	"encoding/json"
	"fmt"
	"time"

	"book-recommender/internal/common/config"
	"book-recommender/internal/common/errors"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// HandlerFunc is the signature Zeebe job workers are opened with.
type HandlerFunc func(client worker.JobClient, job entities.Job)

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// StartWorker opens a job worker for taskType. It returns nil when the worker
// is disabled in configuration.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler HandlerFunc, log logger.Logger) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	if !wcfg.Enabled {
		log.Info("worker disabled", nil)
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})

	return &CamundaWorker{
		worker:   jobWorker,
		logger:   log,
		taskType: taskType,
	}
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop stops polling and waits up to timeout for in-flight jobs.
func (w *CamundaWorker) Stop(timeout time.Duration) {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()

	done := make(chan struct{})
	go func() {
		w.worker.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		w.logger.Warn("worker did not drain before timeout", map[string]interface{}{"timeout": timeout.String()})
	}
}

// ParseVariables checks the job variables against the task type's input
// schema and decodes them into out. Failures are INVALID_INPUT errors. A nil
// validator skips the schema check.
func ParseVariables(job entities.Job, v *validation.Validator, taskType string, out interface{}) error {
	raw := job.GetVariables()
	if raw == "" {
		raw = "{}"
	}

	if v != nil && v.HasSchema(taskType) {
		var variables map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &variables); err != nil {
			return errors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
		}
		result, err := v.Validate(taskType, variables)
		if err != nil {
			return errors.NewInvalidInputError(err.Error())
		}
		if !result.Valid {
			return errors.NewInvalidInputError(result.Error()).WithMetadata("validationErrors", result.Errors)
		}
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}
	return nil
}
