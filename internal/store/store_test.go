package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agenthands/recipemerge/internal/core/mergekey"
	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/store"
	"github.com/agenthands/recipemerge/internal/store/storetest"
)

func testRecipe(ids []int64, urls ...string) *model.MergedRecipe {
	r := &model.MergedRecipe{
		Key:            mergekey.Key(ids),
		PagesCSV:       mergekey.Canonical(ids),
		PageIDs:        mergekey.Normalize(ids),
		DishName:       "Borscht",
		Ingredients:    []model.Ingredient{{Name: "beetroot", Amount: "2", Unit: "pcs"}},
		Instructions:   "Step 1. Boil.",
		Tags:           []string{"soup"},
		Language:       "en",
		ClusterType:    model.ClusterFull,
		ScoreThreshold: 0.9,
		MergeModel:     "gpt-4o-mini",
		GPTValidated:   true,
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, u := range urls {
		r.Images = append(r.Images, model.Image{URL: u, URLHash: mergekey.URLHash(u)})
	}
	return r
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

func TestPageStore_SnapshotsRoundTrip(t *testing.T) {
	db := storetest.SQLite(t)
	pages := store.NewPageStore(db, nil)
	ctx := context.Background()

	require.NoError(t, pages.SavePages(ctx, []model.Page{
		{ID: 2, DishName: "Plov", Ingredients: []model.Ingredient{{Name: "rice", Amount: "500", Unit: "g"}}, Language: "ru", ImageURLs: []string{"b.jpg", "a.jpg"}},
		{ID: 1, DishName: "Borscht", Tags: []string{"soup"}},
	}))

	got, err := pages.Snapshots(ctx, []int64{2, 1, 99})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, []string{"soup"}, got[0].Tags)
	assert.Equal(t, "Plov", got[1].DishName)
	assert.Equal(t, []model.Ingredient{{Name: "rice", Amount: "500", Unit: "g"}}, got[1].Ingredients)
	assert.Equal(t, []string{"b.jpg", "a.jpg"}, got[1].ImageURLs)

	// saving again replaces the image list
	require.NoError(t, pages.SavePages(ctx, []model.Page{{ID: 2, DishName: "Plov", ImageURLs: []string{"c.jpg"}}}))
	got, err = pages.Snapshots(ctx, []int64{2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c.jpg"}, got[0].ImageURLs)

	existing, err := pages.ExistingIDs(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, existing)
}

func TestPageStore_ExistingIDsAcrossChunks(t *testing.T) {
	db := storetest.SQLite(t)
	pages := store.NewPageStore(db, nil)
	ctx := context.Background()
	require.NoError(t, pages.SavePages(ctx, []model.Page{{ID: 1100}, {ID: 3}, {ID: 640}}))

	ids := make([]int64, 0, 1200)
	for i := int64(1200); i > 0; i-- {
		ids = append(ids, i)
	}
	existing, err := pages.ExistingIDs(ctx, ids)

	require.NoError(t, err)
	assert.Equal(t, []int64{3, 640, 1100}, existing)
}

func TestRecipeStore_CreateAndFind(t *testing.T) {
	db := storetest.SQLite(t)
	recipes := store.NewRecipeStore(db, nil)
	ctx := context.Background()

	missing, err := recipes.FindByKey(ctx, mergekey.Key([]int64{1, 2}))
	require.NoError(t, err)
	assert.Nil(t, missing)

	r := testRecipe([]int64{2, 1}, "https://img/1.jpg", "https://img/2.jpg")
	require.NoError(t, recipes.Create(ctx, r))
	assert.NotZero(t, r.ID)
	for _, img := range r.Images {
		assert.NotZero(t, img.ID)
	}

	got, err := recipes.FindByKey(ctx, r.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "1,2", got.PagesCSV)
	assert.Equal(t, []int64{1, 2}, got.PageIDs)
	assert.Equal(t, r.Ingredients, got.Ingredients)
	assert.Equal(t, model.ClusterFull, got.ClusterType)
	assert.True(t, got.GPTValidated)
	require.Len(t, got.Images, 2)
	assert.Equal(t, mergekey.URLHash("https://img/1.jpg"), got.Images[0].URLHash)
}

func TestRecipeStore_DuplicateKeyIsConflict(t *testing.T) {
	db := storetest.SQLite(t)
	recipes := store.NewRecipeStore(db, nil)
	ctx := context.Background()

	require.NoError(t, recipes.Create(ctx, testRecipe([]int64{1, 2}, "https://img/1.jpg")))

	err := recipes.Create(ctx, testRecipe([]int64{2, 1}, "https://img/9.jpg"))

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.False(t, model.IsRetryable(err))
	assert.Equal(t, int64(1), countRows(t, db, "merged_recipes"))
	// the losing transaction left nothing behind
	assert.Equal(t, int64(1), countRows(t, db, "images"))
	assert.Equal(t, int64(1), countRows(t, db, "merged_recipe_images"))
}

func TestRecipeStore_ImagesAreShared(t *testing.T) {
	db := storetest.SQLite(t)
	recipes := store.NewRecipeStore(db, nil)
	ctx := context.Background()

	a := testRecipe([]int64{1, 2}, "https://img/shared.jpg", "https://img/a.jpg")
	b := testRecipe([]int64{1, 3}, "https://img/shared.jpg")
	require.NoError(t, recipes.Create(ctx, a))
	require.NoError(t, recipes.Create(ctx, b))

	assert.Equal(t, a.Images[0].ID, b.Images[0].ID)
	assert.Equal(t, int64(2), countRows(t, db, "images"))
	assert.Equal(t, int64(3), countRows(t, db, "merged_recipe_images"))
}

func TestRecipeStore_Postgres(t *testing.T) {
	db := storetest.Postgres(t)
	recipes := store.NewRecipeStore(db, nil)
	ctx := context.Background()

	// unique page ids per run against a shared database
	base := int64(uuid.New().ID())
	ids := []int64{base, base + 1}
	url := "https://img/" + uuid.NewString() + ".jpg"

	require.NoError(t, recipes.Create(ctx, testRecipe(ids, url)))
	err := recipes.Create(ctx, testRecipe(ids, url))
	assert.ErrorIs(t, err, model.ErrConflict)

	got, err := recipes.FindByKey(ctx, mergekey.Key(ids))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Images, 1)
}
