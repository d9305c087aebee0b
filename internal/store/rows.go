package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/agenthands/recipemerge/internal/core/mergekey"
	"github.com/agenthands/recipemerge/internal/core/model"
)

type PageRow struct {
	ID            int64          `gorm:"primaryKey;autoIncrement:false"`
	DishName      string         `gorm:"type:text;not null"`
	Ingredients   datatypes.JSON `gorm:"not null"`
	Instructions  string         `gorm:"type:text"`
	Description   string         `gorm:"type:text"`
	NutritionInfo string         `gorm:"type:text"`
	PrepTime      string
	CookTime      string
	TotalTime     string
	Tags          datatypes.JSON
	Category      string
	Language      string         `gorm:"index"`
	Images        []PageImageRow `gorm:"foreignKey:PageID"`
}

func (PageRow) TableName() string { return "pages" }

type PageImageRow struct {
	ID       int64  `gorm:"primaryKey"`
	PageID   int64  `gorm:"index;not null"`
	URL      string `gorm:"type:text;not null"`
	Position int    `gorm:"not null"`
}

func (PageImageRow) TableName() string { return "page_images" }

type ImageRow struct {
	ID        int64     `gorm:"primaryKey"`
	URL       string    `gorm:"type:text;not null"`
	URLHash   string    `gorm:"column:url_hash;size:64;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (ImageRow) TableName() string { return "images" }

type MergedRecipeRow struct {
	ID             int64          `gorm:"primaryKey"`
	PagesHash      string         `gorm:"column:pages_hash_sha256;size:64;uniqueIndex;not null"`
	PagesCSV       string         `gorm:"type:text;not null"`
	DishName       string         `gorm:"type:text;not null"`
	Ingredients    datatypes.JSON `gorm:"not null"`
	Instructions   string         `gorm:"type:text"`
	Description    string         `gorm:"type:text"`
	NutritionInfo  string         `gorm:"type:text"`
	PrepTime       string
	CookTime       string
	TotalTime      string
	Tags           datatypes.JSON
	Language       string
	MergeComments  string  `gorm:"type:text"`
	ClusterType    string  `gorm:"index;not null"`
	ScoreThreshold float64 `gorm:"not null"`
	MergeModel     string
	GPTValidated   bool      `gorm:"column:gpt_validated;not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (MergedRecipeRow) TableName() string { return "merged_recipes" }

// MergedRecipeImageRow links a merged recipe to an image. The composite
// primary key makes repeated links no-ops.
type MergedRecipeImageRow struct {
	MergedRecipeID int64 `gorm:"primaryKey;autoIncrement:false"`
	ImageID        int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (MergedRecipeImageRow) TableName() string { return "merged_recipe_images" }

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func unmarshalJSON[T any](raw datatypes.JSON) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	err := json.Unmarshal(raw, &out)
	return out, err
}

func pageToRow(p model.Page) (*PageRow, error) {
	ings, err := marshalJSON(p.Ingredients)
	if err != nil {
		return nil, err
	}
	tags, err := marshalJSON(p.Tags)
	if err != nil {
		return nil, err
	}
	row := &PageRow{
		ID:            p.ID,
		DishName:      p.DishName,
		Ingredients:   ings,
		Instructions:  p.Instructions,
		Description:   p.Description,
		NutritionInfo: p.NutritionInfo,
		PrepTime:      p.PrepTime,
		CookTime:      p.CookTime,
		TotalTime:     p.TotalTime,
		Tags:          tags,
		Category:      p.Category,
		Language:      p.Language,
	}
	for i, u := range p.ImageURLs {
		row.Images = append(row.Images, PageImageRow{PageID: p.ID, URL: u, Position: i})
	}
	return row, nil
}

func pageFromRow(row *PageRow) (model.Page, error) {
	ings, err := unmarshalJSON[[]model.Ingredient](row.Ingredients)
	if err != nil {
		return model.Page{}, err
	}
	tags, err := unmarshalJSON[[]string](row.Tags)
	if err != nil {
		return model.Page{}, err
	}
	p := model.Page{
		ID:            row.ID,
		DishName:      row.DishName,
		Ingredients:   ings,
		Instructions:  row.Instructions,
		Description:   row.Description,
		NutritionInfo: row.NutritionInfo,
		PrepTime:      row.PrepTime,
		CookTime:      row.CookTime,
		TotalTime:     row.TotalTime,
		Tags:          tags,
		Category:      row.Category,
		Language:      row.Language,
	}
	for _, img := range row.Images {
		p.ImageURLs = append(p.ImageURLs, img.URL)
	}
	return p, nil
}

func recipeToRow(r *model.MergedRecipe) (*MergedRecipeRow, error) {
	ings, err := marshalJSON(r.Ingredients)
	if err != nil {
		return nil, err
	}
	tags, err := marshalJSON(r.Tags)
	if err != nil {
		return nil, err
	}
	return &MergedRecipeRow{
		PagesHash:      r.Key,
		PagesCSV:       r.PagesCSV,
		DishName:       r.DishName,
		Ingredients:    ings,
		Instructions:   r.Instructions,
		Description:    r.Description,
		NutritionInfo:  r.NutritionInfo,
		PrepTime:       r.PrepTime,
		CookTime:       r.CookTime,
		TotalTime:      r.TotalTime,
		Tags:           tags,
		Language:       r.Language,
		MergeComments:  r.MergeComments,
		ClusterType:    string(r.ClusterType),
		ScoreThreshold: r.ScoreThreshold,
		MergeModel:     r.MergeModel,
		GPTValidated:   r.GPTValidated,
		CreatedAt:      r.CreatedAt,
	}, nil
}

func recipeFromRow(row *MergedRecipeRow, images []ImageRow) (*model.MergedRecipe, error) {
	ings, err := unmarshalJSON[[]model.Ingredient](row.Ingredients)
	if err != nil {
		return nil, err
	}
	tags, err := unmarshalJSON[[]string](row.Tags)
	if err != nil {
		return nil, err
	}
	ids, err := mergekey.ParseCSV(row.PagesCSV)
	if err != nil {
		return nil, err
	}
	r := &model.MergedRecipe{
		ID:             row.ID,
		Key:            row.PagesHash,
		PagesCSV:       row.PagesCSV,
		PageIDs:        ids,
		DishName:       row.DishName,
		Ingredients:    ings,
		Instructions:   row.Instructions,
		Description:    row.Description,
		NutritionInfo:  row.NutritionInfo,
		PrepTime:       row.PrepTime,
		CookTime:       row.CookTime,
		TotalTime:      row.TotalTime,
		Tags:           tags,
		Language:       row.Language,
		MergeComments:  row.MergeComments,
		ClusterType:    model.ClusterType(row.ClusterType),
		ScoreThreshold: row.ScoreThreshold,
		MergeModel:     row.MergeModel,
		GPTValidated:   row.GPTValidated,
		CreatedAt:      row.CreatedAt,
	}
	for _, img := range images {
		r.Images = append(r.Images, model.Image{ID: img.ID, URL: img.URL, URLHash: img.URLHash, CreatedAt: img.CreatedAt})
	}
	return r, nil
}
