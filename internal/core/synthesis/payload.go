package synthesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agenthands/recipemerge/internal/core/model"
)

// decodePayload checks a parsed response for the required keys and
// normalizes the accepted shapes. ingredients_with_amounts and source_notes
// are accepted as aliases; instructions may be a string or a list of steps.
func decodePayload(raw map[string]json.RawMessage) (model.MergePayload, error) {
	var p model.MergePayload
	var missing []string

	p.DishName = optString(raw["dish_name"])
	if p.DishName == "" {
		missing = append(missing, "dish_name")
	}

	ingRaw, ok := raw["ingredients"]
	if !ok || isNull(ingRaw) {
		ingRaw = raw["ingredients_with_amounts"]
	}
	ingredients, err := decodeIngredients(ingRaw)
	if err != nil {
		return p, fmt.Errorf("ingredients: %w", err)
	}
	p.Ingredients = ingredients
	if len(p.Ingredients) == 0 {
		missing = append(missing, "ingredients")
	}

	p.Instructions = decodeInstructions(raw["instructions"])
	if p.Instructions == "" {
		missing = append(missing, "instructions")
	}

	if len(missing) > 0 {
		return p, fmt.Errorf("missing required keys: %s", strings.Join(missing, ", "))
	}

	p.Description = optString(raw["description"])
	p.NutritionInfo = optString(raw["nutrition_info"])
	p.PrepTime = optString(raw["prep_time"])
	p.CookTime = optString(raw["cook_time"])
	p.TotalTime = optString(raw["total_time"])
	p.Tags = decodeTags(raw["tags"])
	p.MergeComments = optString(raw["merge_comments"])
	if p.MergeComments == "" {
		p.MergeComments = optString(raw["source_notes"])
	}
	return p, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// optString accepts a string, a number or any other JSON value (kept as
// compact JSON). null and absent are "".
func optString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return strings.TrimSpace(string(raw))
}

func decodeIngredients(raw json.RawMessage) ([]model.Ingredient, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []model.Ingredient
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	out := list[:0]
	for _, ing := range list {
		if ing.Name != "" {
			out = append(out, ing)
		}
	}
	return out, nil
}

func decodeInstructions(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var steps []string
	if err := json.Unmarshal(raw, &steps); err == nil {
		kept := make([]string, 0, len(steps))
		for _, s := range steps {
			if s = strings.TrimSpace(s); s != "" {
				kept = append(kept, s)
			}
		}
		return strings.Join(kept, " ")
	}
	return optString(raw)
}

func decodeTags(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		tags = strings.Split(optString(raw), ",")
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
