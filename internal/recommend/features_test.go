package recommend

import (
	"context"
	"testing"

	"book-recommender/internal/common/logger"
	"book-recommender/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Extract(t *testing.T) {
	hobbit := book("hobbit", []string{"J.R.R. Tolkien"}, []string{"Fantasy"}, "Bilbo Baggins is swept into a quest.")
	hobbit.AverageRating = 4.5
	hobbit.RatingsCount = 300

	noAuthors := book("anon", nil, []string{"Poetry"}, "Verses.")
	noDescription := book("bare", []string{"Someone"}, []string{"Essays"}, "")

	cat := newFakeCatalog()
	cat.books["hobbit"] = hobbit
	cat.books["anon"] = noAuthors
	cat.books["bare"] = noDescription

	extractor := NewExtractor(cat, logger.NewTestLogger(t))

	tests := []struct {
		name       string
		fav        models.Favorite
		want       models.Features
		wantUpdate *models.DescriptionUpdate
	}{
		{
			name: "richer description emits update",
			fav:  models.Favorite{ID: 7, BookID: "hobbit", Authors: "J.R.R. Tolkien", Description: "A hobbit book."},
			want: models.Features{
				Title:         "Title hobbit",
				Authors:       []string{"J.R.R. Tolkien"},
				Categories:    []string{"Fantasy"},
				Description:   "Bilbo Baggins is swept into a quest.",
				AverageRating: 4.5,
				RatingsCount:  300,
			},
			wantUpdate: &models.DescriptionUpdate{FavoriteID: 7, Description: "Bilbo Baggins is swept into a quest."},
		},
		{
			name: "same description emits nothing",
			fav:  models.Favorite{ID: 8, BookID: "hobbit", Authors: "J.R.R. Tolkien", Description: "Bilbo Baggins is swept into a quest."},
			want: models.Features{
				Title:         "Title hobbit",
				Authors:       []string{"J.R.R. Tolkien"},
				Categories:    []string{"Fantasy"},
				Description:   "Bilbo Baggins is swept into a quest.",
				AverageRating: 4.5,
				RatingsCount:  300,
			},
		},
		{
			name: "lookup failure falls back to stored fields",
			fav:  models.Favorite{ID: 9, BookID: "gone", Title: "Gone", Authors: "Terry Pratchett, Neil Gaiman", Description: "Stored text."},
			want: models.Features{
				Title:       "Gone",
				Authors:     []string{"Terry Pratchett", "Neil Gaiman"},
				Categories:  []string{},
				Description: "Stored text.",
			},
		},
		{
			name: "lookup without authors keeps stored authors",
			fav:  models.Favorite{ID: 10, BookID: "anon", Authors: "Anonymous Poet", Description: "Verses."},
			want: models.Features{
				Title:       "Title anon",
				Authors:     []string{"Anonymous Poet"},
				Categories:  []string{"Poetry"},
				Description: "Verses.",
			},
		},
		{
			name: "lookup without description keeps stored one",
			fav:  models.Favorite{ID: 11, BookID: "bare", Authors: "Someone", Description: "Kept."},
			want: models.Features{
				Title:       "Title bare",
				Authors:     []string{"Someone"},
				Categories:  []string{"Essays"},
				Description: "Kept.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, update := extractor.Extract(context.Background(), tt.fav)

			assert.Equal(t, tt.want, got)
			if tt.wantUpdate == nil {
				assert.Nil(t, update)
				return
			}
			require.NotNil(t, update)
			assert.Equal(t, *tt.wantUpdate, *update)
		})
	}
}
