// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"
	ErrCodeCatalogThrottled   ErrorCode = "CATALOG_THROTTLED"
	ErrCodeSearchQueryEmpty   ErrorCode = "SEARCH_QUERY_EMPTY"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeFavoritesLoadFailed      ErrorCode = "FAVORITES_LOAD_FAILED"
	ErrCodeFavoriteUpdateFailed     ErrorCode = "FAVORITE_UPDATE_FAILED"
	ErrCodeFavoriteDuplicate        ErrorCode = "FAVORITE_DUPLICATE"
	ErrCodeFavoriteNotFound         ErrorCode = "FAVORITE_NOT_FOUND"
	ErrCodePlaylistCreateFailed     ErrorCode = "PLAYLIST_CREATE_FAILED"

	ErrCodeRecommendationFailed ErrorCode = "RECOMMENDATION_FAILED"

	ErrCodeWorkflowEngineUnavailable ErrorCode = "WORKFLOW_ENGINE_UNAVAILABLE"
	ErrCodeWorkflowCommandRejected   ErrorCode = "WORKFLOW_COMMAND_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error's metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError is a non-retryable job variable problem.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

// NewCatalogUnavailableError is raised only by workers that need the catalog
// to answer (search-books); the engine itself degrades to empty results.
func NewCatalogUnavailableError(err error) *StandardError {
	return newError(ErrCodeCatalogUnavailable, "Book catalog unavailable", err.Error(), true)
}

func NewCatalogThrottledError(err error) *StandardError {
	return newError(ErrCodeCatalogThrottled, "Book catalog kept throttling", err.Error(), true)
}

func NewSearchQueryEmptyError() *StandardError {
	return newError(ErrCodeSearchQueryEmpty, "At least one of title, author or genre is required", "", false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewFavoritesLoadFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeFavoritesLoadFailed, "Failed to load favorites",
		fmt.Sprintf("userId: %s, error: %s", userID, err.Error()), true)
}

func NewFavoriteUpdateFailedError(err error) *StandardError {
	return newError(ErrCodeFavoriteUpdateFailed, "Failed to write favorite", err.Error(), true)
}

func NewFavoriteDuplicateError(bookID string) *StandardError {
	return newError(ErrCodeFavoriteDuplicate, "Book is already a favorite",
		fmt.Sprintf("bookId: %s", bookID), false)
}

func NewFavoriteNotFoundError(bookID string) *StandardError {
	return newError(ErrCodeFavoriteNotFound, "Book is not in favorites",
		fmt.Sprintf("bookId: %s", bookID), false)
}

func NewPlaylistCreateFailedError(err error) *StandardError {
	return newError(ErrCodePlaylistCreateFailed, "Failed to create playlist", err.Error(), true)
}

func NewRecommendationFailedError(err error) *StandardError {
	return newError(ErrCodeRecommendationFailed, "Recommendation run failed", err.Error(), true)
}

func NewWorkflowEngineUnavailableError(err error) *StandardError {
	return newError(ErrCodeWorkflowEngineUnavailable, "Zeebe gateway unavailable", err.Error(), true)
}

func NewWorkflowCommandRejectedError(err error) *StandardError {
	return newError(ErrCodeWorkflowCommandRejected, "Zeebe rejected the command", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns how many times the job should be retried for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeFavoritesLoadFailed,
		ErrCodeFavoriteUpdateFailed,
		ErrCodePlaylistCreateFailed,
		ErrCodeRecommendationFailed,
		ErrCodeWorkflowEngineUnavailable:
		return 3

	case ErrCodeCatalogUnavailable,
		ErrCodeCatalogThrottled:
		return 2

	default:
		return 0 // business errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err looking for a *StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "CATALOG") || strings.HasPrefix(codeStr, "SEARCH"):
		return "CATALOG"
	case strings.HasPrefix(codeStr, "FAVORITE"), strings.HasPrefix(codeStr, "PLAYLIST"),
		strings.HasPrefix(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.HasPrefix(codeStr, "RECOMMENDATION"):
		return "ENGINE"
	case strings.HasPrefix(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
