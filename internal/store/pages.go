package store

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/logger"
)

// PageStore reads page snapshots. SavePages exists for loading fixtures
// and imports; the merge engine never writes pages.
type PageStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPageStore(db *gorm.DB, baseLog *logger.Logger) *PageStore {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &PageStore{db: db, log: baseLog.With("repo", "PageStore")}
}

// Snapshots returns the pages with the given ids, ascending by id. Ids with
// no row are absent from the result.
func (s *PageStore) Snapshots(ctx context.Context, ids []int64) ([]model.Page, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []*PageRow
	err := s.db.WithContext(ctx).
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}

	pages := make([]model.Page, 0, len(rows))
	for _, row := range rows {
		p, err := pageFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode page %d: %w", row.ID, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// idChunkSize bounds the bind variables of one IN list.
const idChunkSize = 500

// ExistingIDs returns the subset of ids that have a page row.
func (s *PageStore) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []int64
	for chunk := range slices.Chunk(ids, idChunkSize) {
		var found []int64
		err := s.db.WithContext(ctx).
			Model(&PageRow{}).
			Where("id IN ?", chunk).
			Pluck("id", &found).Error
		if err != nil {
			return nil, fmt.Errorf("lookup page ids: %w", err)
		}
		out = append(out, found...)
	}
	slices.Sort(out)
	return out, nil
}

// SavePages upserts pages and replaces their image lists.
func (s *PageStore) SavePages(ctx context.Context, pages []model.Page) error {
	if len(pages) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range pages {
			row, err := pageToRow(p)
			if err != nil {
				return fmt.Errorf("encode page %d: %w", p.ID, err)
			}
			images := row.Images
			row.Images = nil

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(row).Error; err != nil {
				return fmt.Errorf("save page %d: %w", p.ID, err)
			}
			if err := tx.Where("page_id = ?", p.ID).Delete(&PageImageRow{}).Error; err != nil {
				return fmt.Errorf("clear images of page %d: %w", p.ID, err)
			}
			if len(images) > 0 {
				if err := tx.Create(&images).Error; err != nil {
					return fmt.Errorf("save images of page %d: %w", p.ID, err)
				}
			}
		}
		s.log.Debug("Saved pages", "count", len(pages))
		return nil
	})
}
