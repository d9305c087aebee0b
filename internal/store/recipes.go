package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/logger"
)

// RecipeStore persists merged recipes. The unique pages_hash_sha256 column
// is the lock of record: at most one row per merge key.
type RecipeStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecipeStore(db *gorm.DB, baseLog *logger.Logger) *RecipeStore {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &RecipeStore{db: db, log: baseLog.With("repo", "RecipeStore")}
}

// FindByKey returns the merged recipe for key, or nil when there is none.
func (s *RecipeStore) FindByKey(ctx context.Context, key string) (*model.MergedRecipe, error) {
	const op = "store.FindByKey"

	var row MergedRecipeRow
	err := s.db.WithContext(ctx).Where("pages_hash_sha256 = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewError(model.KindPersistence, op, err)
	}

	var images []ImageRow
	err = s.db.WithContext(ctx).
		Joins("JOIN merged_recipe_images mri ON mri.image_id = images.id").
		Where("mri.merged_recipe_id = ?", row.ID).
		Order("images.id ASC").
		Find(&images).Error
	if err != nil {
		return nil, model.NewError(model.KindPersistence, op, err)
	}

	r, err := recipeFromRow(&row, images)
	if err != nil {
		return nil, model.NewError(model.KindPersistence, op, fmt.Errorf("decode merged recipe %d: %w", row.ID, err))
	}
	return r, nil
}

// Create inserts the recipe, registers its images and links them in one
// transaction. A row already holding the key yields a KindConflict error
// and nothing is written. On success r.ID and the image ids are set.
func (s *RecipeStore) Create(ctx context.Context, r *model.MergedRecipe) error {
	const op = "store.Create"

	row, err := recipeToRow(r)
	if err != nil {
		return model.NewError(model.KindPersistence, op, err)
	}

	images := make([]model.Image, len(r.Images))
	copy(images, r.Images)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}

		links := make([]MergedRecipeImageRow, 0, len(images))
		for i := range images {
			id, err := registerImage(tx, images[i].URL, images[i].URLHash, r.CreatedAt)
			if err != nil {
				return err
			}
			images[i].ID = id
			links = append(links, MergedRecipeImageRow{MergedRecipeID: row.ID, ImageID: id})
		}
		if len(links) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return fmt.Errorf("link images: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewError(model.KindConflict, op, err)
		}
		return model.NewError(model.KindPersistence, op, err)
	}

	r.ID = row.ID
	r.Images = images
	s.log.Debug("Created merged recipe", "id", row.ID, "key", r.Key, "images", len(images))
	return nil
}

// registerImage inserts the image unless its url hash is already known and
// returns the id of the stored row either way.
func registerImage(tx *gorm.DB, url, hash string, createdAt time.Time) (int64, error) {
	img := ImageRow{URL: url, URLHash: hash, CreatedAt: createdAt}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url_hash"}},
		DoNothing: true,
	}).Create(&img).Error; err != nil {
		return 0, fmt.Errorf("register image %s: %w", hash, err)
	}

	var stored ImageRow
	if err := tx.Where("url_hash = ?", hash).Take(&stored).Error; err != nil {
		return 0, fmt.Errorf("load image %s: %w", hash, err)
	}
	return stored.ID, nil
}
