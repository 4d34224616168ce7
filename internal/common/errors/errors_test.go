package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeFavoritesLoadFailed, 3},
		{ErrCodePlaylistCreateFailed, 3},
		{ErrCodeCatalogUnavailable, 2},
		{ErrCodeCatalogThrottled, 2},
		{ErrCodeFavoriteDuplicate, 0},
		{ErrCodeInvalidInput, 0},
		{ErrorCode("SOMETHING_ELSE"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetRetryCount(tt.code))
			assert.Equal(t, tt.want > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewFavoritesLoadFailedError("user-1", stderrors.New("connection reset")).
		WithMetadata("userId", "user-1")

	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "FAVORITES_LOAD_FAILED", bpmnErr.Code)
	assert.Equal(t, 3, bpmnErr.Retries)
	assert.True(t, bpmnErr.Retryable)

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "FAVORITES_LOAD_FAILED", vars["errorCode"])
	assert.Equal(t, "FAVORITES_LOAD_FAILED", vars["originalErrorCode"])
	assert.Equal(t, "user-1", vars["userId"])
	assert.Contains(t, vars["errorDetails"], "connection reset")
}

func TestConvertToBPMNError_NonRetryableHasNoRetries(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewFavoriteDuplicateError("vol-1"))
	assert.Equal(t, 0, bpmnErr.Retries)
	assert.False(t, bpmnErr.Retryable)
}

func TestAsStandardError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("create playlist: %w", NewPlaylistCreateFailedError(stderrors.New("tx aborted")))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodePlaylistCreateFailed, stdErr.Code)

	_, ok = AsStandardError(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestNormalize_PlainErrorBecomesInternal(t *testing.T) {
	stdErr := Normalize(stderrors.New("nil pointer"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "nil pointer", stdErr.Details)
	assert.False(t, stdErr.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CATALOG", GetErrorCategory(ErrCodeCatalogThrottled))
	assert.Equal(t, "CATALOG", GetErrorCategory(ErrCodeSearchQueryEmpty))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeFavoriteNotFound))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodePlaylistCreateFailed))
	assert.Equal(t, "ENGINE", GetErrorCategory(ErrCodeRecommendationFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
	assert.Equal(t, "WORKFLOW", GetErrorCategory(ErrCodeWorkflowEngineUnavailable))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestRemainingRetries(t *testing.T) {
	job := func(retries int32) entities.Job {
		return entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: retries}}
	}

	assert.Equal(t, int32(2), remainingRetries(job(3), 3))
	assert.Equal(t, int32(3), remainingRetries(job(10), 3))
	assert.Equal(t, int32(0), remainingRetries(job(0), 3))
}
