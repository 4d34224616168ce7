// internal/workers/favorites/remove-favorite/handler_test.go
package removefavorite

import (
	"context"
	"regexp"
	"testing"
	"time"

	"book-recommender/internal/common/errors"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func createTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHandler(createTestConfig(), store.NewFavoriteStore(db), nil, logger.NewTestLogger(t)), mock
}

// ==========================
// Execute
// ==========================

func TestExecute_RemovesFavorite(t *testing.T) {
	h, mock := createTestHandler(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM favorites WHERE user_id = $1 AND book_id = $2")).
		WithArgs("user-1", "hobbit").
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{UserID: "user-1", BookID: "hobbit"})

	require.NoError(t, err)
	assert.True(t, out.Removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		setup     func(sqlmock.Sqlmock)
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{
			name:  "not a favorite",
			input: &Input{UserID: "user-1", BookID: "dune"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec("DELETE FROM favorites").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantCode: errors.ErrCodeFavoriteNotFound,
		},
		{
			name:  "database down",
			input: &Input{UserID: "user-1", BookID: "dune"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec("DELETE FROM favorites").WillReturnError(assert.AnError)
			},
			wantCode:  errors.ErrCodeFavoriteUpdateFailed,
			retryable: true,
		},
		{
			name:     "missing book id",
			input:    &Input{UserID: "user-1"},
			setup:    func(sqlmock.Sqlmock) {},
			wantCode: errors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := createTestHandler(t)
			tt.setup(mock)

			_, err := h.Execute(context.Background(), tt.input)

			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
