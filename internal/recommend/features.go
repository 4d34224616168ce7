package recommend

import (
	"context"
	"strings"

	"book-recommender/internal/catalog"
	"book-recommender/internal/common/logger"
	"book-recommender/internal/common/textutil"
	"book-recommender/internal/models"
)

// Extractor builds the feature set of a favorite, preferring a fresh catalog
// record over what was stored when the favorite was added.
type Extractor struct {
	catalog catalog.Catalog
	logger  logger.Logger
}

func NewExtractor(cat catalog.Catalog, log logger.Logger) *Extractor {
	return &Extractor{catalog: cat, logger: log}
}

// Extract never fails. When the lookup succeeds with a description that
// differs from the stored one, it also returns an update for the caller to
// persist.
func (e *Extractor) Extract(ctx context.Context, fav models.Favorite) (models.Features, *models.DescriptionUpdate) {
	stored := storedFeatures(fav)

	book, err := e.catalog.Lookup(ctx, fav.BookID)
	if err != nil {
		e.logger.Warn("favorite lookup failed, using stored fields", map[string]interface{}{
			"favoriteId": fav.ID,
			"bookId":     fav.BookID,
			"error":      err,
		})
		return stored, nil
	}

	features := models.FeaturesOf(book)
	if len(features.Authors) == 0 {
		features.Authors = stored.Authors
	}
	if features.Title == "" {
		features.Title = stored.Title
	}

	var update *models.DescriptionUpdate
	fresh := strings.TrimSpace(features.Description)
	switch {
	case fresh == "":
		features.Description = stored.Description
	case fresh != strings.TrimSpace(fav.Description):
		update = &models.DescriptionUpdate{FavoriteID: fav.ID, Description: fresh}
	}
	return features, update
}

// storedFeatures is the fallback: stored description and split author string,
// everything else zero.
func storedFeatures(fav models.Favorite) models.Features {
	return models.Features{
		Title:       fav.Title,
		Authors:     textutil.Unique(textutil.SplitList(fav.Authors)),
		Description: fav.Description,
		Categories:  []string{},
	}
}
