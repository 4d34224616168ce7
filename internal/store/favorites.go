package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"book-recommender/internal/models"
)

const (
	listFavoritesSQL = `SELECT id, user_id, book_id, title, authors, thumbnail, description, created_at
		FROM favorites WHERE user_id = $1 ORDER BY created_at, id`

	insertFavoriteSQL = `INSERT INTO favorites (user_id, book_id, title, authors, thumbnail, description)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`

	favoriteExistsSQL = `SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND book_id = $2)`

	deleteFavoriteSQL = `DELETE FROM favorites WHERE user_id = $1 AND book_id = $2`

	updateDescriptionSQL = `UPDATE favorites SET description = $2 WHERE id = $1`

	clearFavoritesSQL = `DELETE FROM favorites WHERE user_id = $1`
)

type FavoriteStore struct {
	db DBTX
}

func NewFavoriteStore(db DBTX) *FavoriteStore {
	return &FavoriteStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *FavoriteStore) WithTx(tx *sql.Tx) *FavoriteStore {
	return &FavoriteStore{db: tx}
}

func (s *FavoriteStore) ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, listFavoritesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := []models.Favorite{}
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.BookID, &f.Title, &f.Authors, &f.Thumbnail, &f.Description, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return favorites, nil
}

// AddFavorite inserts fav and fills in its id and creation time. A second
// favorite for the same user and book returns ErrDuplicateFavorite.
func (s *FavoriteStore) AddFavorite(ctx context.Context, fav *models.Favorite) error {
	err := s.db.QueryRowContext(ctx, insertFavoriteSQL,
		fav.UserID, fav.BookID, fav.Title, fav.Authors, fav.Thumbnail, fav.Description,
	).Scan(&fav.ID, &fav.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateFavorite, fav.BookID)
		}
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

func (s *FavoriteStore) FavoriteExists(ctx context.Context, userID, bookID string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, favoriteExistsSQL, userID, bookID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

func (s *FavoriteStore) RemoveFavorite(ctx context.Context, userID, bookID string) error {
	res, err := s.db.ExecContext(ctx, deleteFavoriteSQL, userID, bookID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrFavoriteNotFound, bookID)
	}
	return nil
}

func (s *FavoriteStore) UpdateFavoriteDescription(ctx context.Context, favoriteID int64, description string) error {
	res, err := s.db.ExecContext(ctx, updateDescriptionSQL, favoriteID, description)
	if err != nil {
		return fmt.Errorf("update favorite description: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", ErrFavoriteNotFound, favoriteID)
	}
	return nil
}

// ApplyDescriptionUpdates writes every update and reports how many were
// applied. Favorites deleted in the meantime are skipped.
func (s *FavoriteStore) ApplyDescriptionUpdates(ctx context.Context, updates []models.DescriptionUpdate) (int, error) {
	applied := 0
	for _, u := range updates {
		err := s.UpdateFavoriteDescription(ctx, u.FavoriteID, u.Description)
		switch {
		case err == nil:
			applied++
		case errors.Is(err, ErrFavoriteNotFound):
		default:
			return applied, err
		}
	}
	return applied, nil
}

// ClearFavorites removes all of a user's favorites and returns how many were
// deleted.
func (s *FavoriteStore) ClearFavorites(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, clearFavoritesSQL, userID)
	if err != nil {
		return 0, fmt.Errorf("clear favorites: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear favorites: %w", err)
	}
	return n, nil
}
