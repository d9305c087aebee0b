package synthesis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) (model.MergePayload, error) {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return decodePayload(raw)
}

func TestDecodePayload_Aliases(t *testing.T) {
	p, err := decode(t, `{
		"dish_name": "Plov",
		"ingredients_with_amounts": [{"name": "rice", "amount": 0.5, "unit": "kg"}, {"name": ""}],
		"instructions": ["Step 1. Fry.", " ", "Step 2. Simmer."],
		"prep_time": 15,
		"nutrition_info": {"kcal": 520},
		"tags": "rice, main ,",
		"source_notes": "rice ratio from page 2"
	}`)

	require.NoError(t, err)
	assert.Equal(t, "Plov", p.DishName)
	assert.Equal(t, []model.Ingredient{{Name: "rice", Amount: "0.5", Unit: "kg"}}, p.Ingredients)
	assert.Equal(t, "Step 1. Fry. Step 2. Simmer.", p.Instructions)
	assert.Equal(t, "15", p.PrepTime)
	assert.Equal(t, `{"kcal":520}`, p.NutritionInfo)
	assert.Equal(t, []string{"rice", "main"}, p.Tags)
	assert.Equal(t, "rice ratio from page 2", p.MergeComments)
}

func TestDecodePayload_MissingRequired(t *testing.T) {
	_, err := decode(t, `{"dish_name": "  ", "ingredients": [], "instructions": null}`)

	require.Error(t, err)
	for _, key := range []string{"dish_name", "ingredients", "instructions"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestDecodePayload_BadIngredients(t *testing.T) {
	_, err := decode(t, `{"dish_name": "Plov", "ingredients": "rice", "instructions": "Cook."}`)
	assert.Error(t, err)
}

func TestSelectBase(t *testing.T) {
	pages := []model.Page{
		{ID: 5, DishName: "Long name soup", Ingredients: make([]model.Ingredient, 3), Instructions: "abc"},
		{ID: 2, DishName: "Soup", Ingredients: make([]model.Ingredient, 3), Instructions: "abc"},
		{ID: 9, DishName: "Soup", Ingredients: make([]model.Ingredient, 2), Instructions: strings.Repeat("x", 500)},
	}
	// equal ingredients and instructions: shorter name wins
	assert.Equal(t, int64(2), SelectBase(pages).ID)

	pages[0].CookTime = "10 min"
	assert.Equal(t, int64(5), SelectBase(pages).ID)

	pages[1].Instructions = "abcd"
	assert.Equal(t, int64(2), SelectBase(pages).ID)
}

func TestSelectBase_TieGoesToLowestID(t *testing.T) {
	pages := []model.Page{
		{ID: 8, DishName: "Soup"},
		{ID: 4, DishName: "Soup"},
	}
	assert.Equal(t, int64(4), SelectBase(pages).ID)
}

func TestRenderPages_Caps(t *testing.T) {
	ings := make([]model.Ingredient, 40)
	for i := range ings {
		ings[i] = model.Ingredient{Name: "ing"}
	}
	out := RenderPages([]model.Page{{ID: 1, DishName: "Big", Ingredients: ings, Instructions: strings.Repeat("я", 3500)}})

	assert.Equal(t, maxPromptIngredients, strings.Count(out, "  - ing:"))
	assert.Equal(t, maxPromptInstructions, strings.Count(out, "я"))
	assert.Contains(t, out, "Prep: N/A")
}
