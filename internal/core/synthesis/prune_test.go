package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/recipemerge/internal/core/model"
)

func ings(names ...string) []model.Ingredient {
	out := make([]model.Ingredient, len(names))
	for i, n := range names {
		out[i] = model.Ingredient{Name: n}
	}
	return out
}

func TestDistinctPages(t *testing.T) {
	pages := []model.Page{
		{ID: 1, DishName: "Classic Borscht", Ingredients: ings("beetroot", "cabbage"), Instructions: "Boil the beetroot with cabbage for an hour."},
		{ID: 2, DishName: "classic borscht", Ingredients: ings("Cabbage", " beetroot "), Instructions: "Boil the beetroot with cabbage for an hour."},
		{ID: 3, DishName: "Classic Borscht", Ingredients: ings("beetroot", "cabbage", "beans"), Instructions: "Boil the beetroot with cabbage for an hour."},
		{ID: 4, DishName: "Green Borscht", Ingredients: ings("beetroot", "cabbage"), Instructions: "Boil the beetroot with cabbage for an hour."},
		{ID: 5, DishName: "Classic Borscht", Ingredients: ings("beetroot", "cabbage"), Instructions: "Roast everything."},
	}

	got := DistinctPages(pages)

	ids := make([]int64, len(got))
	for i, p := range got {
		ids[i] = p.ID
	}
	assert.Equal(t, []int64{1, 3, 4, 5}, ids)
}

func TestNearIdentical_EmptyFieldsNeverMatch(t *testing.T) {
	a := model.Page{DishName: "Soup", Ingredients: ings("water")}
	assert.False(t, NearIdentical(a, a))
}

func TestInstructionDifference(t *testing.T) {
	assert.Zero(t, instructionDifference("Boil it.", "boil IT."))
	assert.Equal(t, 1.0, instructionDifference("", "Boil it."))
	assert.InDelta(t, 0.5, instructionDifference("aa bb", "cc dd"), 1e-9)
}

func TestRenderMergePrompt(t *testing.T) {
	out := RenderMergePrompt("100% {{cluster_type}} @ {{threshold}}: {{recipes}} %s",
		model.ClusterImage, 0.9, []model.Page{{ID: 4, DishName: "Plov"}})

	assert.Contains(t, out, "100% image @ 0.90: RECIPE 1 (page 4):")
	assert.Contains(t, out, "Name: Plov")
	assert.Contains(t, out, " %s")
	assert.NotContains(t, out, "MISSING")
}
