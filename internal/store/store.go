// Package store persists favorites and playlists in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrFavoriteNotFound  = errors.New("FAVORITE_NOT_FOUND")
	ErrDuplicateFavorite = errors.New("FAVORITE_DUPLICATE")
	ErrPlaylistNotFound  = errors.New("PLAYLIST_NOT_FOUND")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const Schema = `
CREATE TABLE IF NOT EXISTS favorites (
	id          BIGSERIAL PRIMARY KEY,
	user_id     TEXT        NOT NULL,
	book_id     TEXT        NOT NULL,
	title       TEXT        NOT NULL,
	authors     TEXT        NOT NULL,
	thumbnail   TEXT        NOT NULL,
	description TEXT        NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, book_id)
);

CREATE TABLE IF NOT EXISTS playlists (
	id         UUID        PRIMARY KEY,
	user_id    TEXT        NOT NULL,
	name       TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS playlist_books (
	playlist_id UUID    NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	position    INT     NOT NULL,
	book_id     TEXT    NOT NULL,
	title       TEXT    NOT NULL DEFAULT '',
	authors     TEXT[]  NOT NULL DEFAULT '{}',
	thumbnail   TEXT    NOT NULL,
	description TEXT    NOT NULL DEFAULT '',
	categories  TEXT[]  NOT NULL DEFAULT '{}',
	is_source   BOOLEAN NOT NULL,
	PRIMARY KEY (playlist_id, position)
);`

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, db DBTX) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint breach.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
