package assemble

import (
	"testing"
	"time"

	"github.com/agenthands/recipemerge/internal/core/mergekey"
	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAssembler() *Assembler {
	return &Assembler{Now: func() time.Time { return fixedNow }}
}

func TestAssemble(t *testing.T) {
	pages := []model.Page{
		{ID: 15, Language: "en", ImageURLs: []string{"https://a/2.jpg", "https://a/1.jpg"}},
		{ID: 1, Language: "ru", ImageURLs: []string{"https://a/1.jpg"}},
		{ID: 23, Language: "en"},
	}
	payload := model.MergePayload{
		DishName:      "Borscht",
		Ingredients:   []model.Ingredient{{Name: "beetroot"}},
		Instructions:  "Boil.",
		Tags:          []string{"soup"},
		MergeComments: "ok",
	}

	r, err := newTestAssembler().Assemble(Input{
		Key:          mergekey.Key([]int64{1, 15, 23}),
		PageIDs:      []int64{23, 1, 15},
		Pages:        pages,
		ClusterType:  model.ClusterFull,
		Threshold:    0.9,
		Payload:      payload,
		GPTValidated: true,
		MergeModel:   "gpt-4o-mini",
	})

	require.NoError(t, err)
	assert.Equal(t, "1,15,23", r.PagesCSV)
	assert.Equal(t, []int64{1, 15, 23}, r.PageIDs)
	assert.Equal(t, mergekey.Key([]int64{1, 15, 23}), r.Key)
	assert.Equal(t, "Borscht", r.DishName)
	assert.Equal(t, "en", r.Language)
	assert.Equal(t, model.ClusterFull, r.ClusterType)
	assert.Equal(t, 0.9, r.ScoreThreshold)
	assert.True(t, r.GPTValidated)
	assert.Equal(t, "gpt-4o-mini", r.MergeModel)
	assert.Equal(t, fixedNow, r.CreatedAt)

	require.Len(t, r.Images, 2)
	assert.Equal(t, "https://a/1.jpg", r.Images[0].URL)
	assert.Equal(t, mergekey.URLHash("https://a/1.jpg"), r.Images[0].URLHash)
	assert.Equal(t, "https://a/2.jpg", r.Images[1].URL)
}

func TestAssemble_KeyMismatch(t *testing.T) {
	_, err := newTestAssembler().Assemble(Input{
		Key:     mergekey.Key([]int64{1, 2}),
		PageIDs: []int64{1, 3},
		Pages:   []model.Page{{ID: 1}, {ID: 3}},
	})
	assert.ErrorIs(t, err, model.ErrInput)
}

func TestAssemble_MissingSnapshot(t *testing.T) {
	_, err := newTestAssembler().Assemble(Input{
		PageIDs: []int64{1, 2},
		Pages:   []model.Page{{ID: 1}},
	})
	assert.ErrorIs(t, err, model.ErrInput)
}

func TestImages_DedupAcrossPages(t *testing.T) {
	pages := []model.Page{
		{ID: 2, ImageURLs: []string{"u1", " u2 ", ""}},
		{ID: 1, ImageURLs: []string{"u2", "u3"}},
		{ID: 3, ImageURLs: []string{"u1", "u3"}},
	}

	var urls []string
	for _, img := range Images(pages) {
		urls = append(urls, img.URL)
	}
	assert.Equal(t, []string{"u2", "u3", "u1"}, urls)
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "ru", Language([]model.Page{{ID: 5, Language: "en"}, {ID: 2, Language: "ru"}}))
	assert.Equal(t, "en", Language([]model.Page{{ID: 1, Language: "ru"}, {ID: 2, Language: "en"}, {ID: 3, Language: "en"}}))
	assert.Equal(t, UnknownLanguage, Language([]model.Page{{ID: 1}, {ID: 2}}))
}
