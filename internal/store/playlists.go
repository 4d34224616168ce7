package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"book-recommender/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	insertPlaylistSQL = `INSERT INTO playlists (id, user_id, name) VALUES ($1, $2, $3)`

	getPlaylistSQL = `SELECT id, user_id, name, created_at FROM playlists WHERE id = $1`

	insertPlaylistBookSQL = `INSERT INTO playlist_books
		(playlist_id, position, book_id, title, authors, thumbnail, description, categories, is_source)
		VALUES ($1, (SELECT COALESCE(MAX(position), 0) + 1 FROM playlist_books WHERE playlist_id = $1),
		$2, $3, $4, $5, $6, $7, $8)`

	listPlaylistBooksSQL = `SELECT position, book_id, title, authors, thumbnail, description, categories, is_source
		FROM playlist_books WHERE playlist_id = $1 ORDER BY position`
)

type PlaylistStore struct {
	db    DBTX
	newID func() string
}

func NewPlaylistStore(db DBTX) *PlaylistStore {
	return &PlaylistStore{db: db, newID: uuid.NewString}
}

// WithTx returns a store bound to tx.
func (s *PlaylistStore) WithTx(tx *sql.Tx) *PlaylistStore {
	return &PlaylistStore{db: tx, newID: s.newID}
}

func (s *PlaylistStore) CreatePlaylist(ctx context.Context, userID, name string) (string, error) {
	id := s.newID()
	if _, err := s.db.ExecContext(ctx, insertPlaylistSQL, id, userID, name); err != nil {
		return "", fmt.Errorf("insert playlist: %w", err)
	}
	return id, nil
}

func (s *PlaylistStore) GetPlaylist(ctx context.Context, playlistID string) (models.Playlist, error) {
	var p models.Playlist
	err := s.db.QueryRowContext(ctx, getPlaylistSQL, playlistID).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, fmt.Errorf("%w: %s", ErrPlaylistNotFound, playlistID)
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("get playlist: %w", err)
	}
	return p, nil
}

// AddBookToPlaylist appends b after the playlist's current last entry.
func (s *PlaylistStore) AddBookToPlaylist(ctx context.Context, playlistID string, b models.Book, isSource bool) error {
	_, err := s.db.ExecContext(ctx, insertPlaylistBookSQL,
		playlistID, b.ID, b.Title, pq.Array(nonNil(b.Authors)), b.Thumbnail, b.Description, pq.Array(nonNil(b.Categories)), isSource)
	if err != nil {
		return fmt.Errorf("add book %s to playlist: %w", b.ID, err)
	}
	return nil
}

func (s *PlaylistStore) ListPlaylistBooks(ctx context.Context, playlistID string) ([]models.PlaylistBook, error) {
	rows, err := s.db.QueryContext(ctx, listPlaylistBooksSQL, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist books: %w", err)
	}
	defer rows.Close()

	books := []models.PlaylistBook{}
	for rows.Next() {
		pb := models.PlaylistBook{PlaylistID: playlistID}
		var authors, categories pq.StringArray
		if err := rows.Scan(&pb.Position, &pb.Book.ID, &pb.Book.Title, &authors, &pb.Book.Thumbnail,
			&pb.Book.Description, &categories, &pb.IsSource); err != nil {
			return nil, fmt.Errorf("scan playlist book: %w", err)
		}
		pb.Book.Authors = []string(authors)
		pb.Book.Categories = []string(categories)
		books = append(books, pb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist books: %w", err)
	}
	return books, nil
}

// nonNil keeps empty lists from being written as NULL.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
