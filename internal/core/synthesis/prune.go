package synthesis

import (
	"strings"

	"github.com/agenthands/recipemerge/internal/core/model"
)

// Two pages are near-identical when their names and instructions differ by
// less than maxNearDifference and their ingredient names overlap by more
// than minIngredientOverlap.
const (
	maxNearDifference    = 0.2
	minIngredientOverlap = 0.95
)

// DistinctPages drops pages that are near-identical to an earlier page, so
// copies do not spend prompt budget. Order is kept. It only narrows what the
// generative service sees; provenance and images always cover every page.
func DistinctPages(pages []model.Page) []model.Page {
	kept := make([]model.Page, 0, len(pages))
	for _, p := range pages {
		if !containsNear(kept, p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func containsNear(kept []model.Page, p model.Page) bool {
	for _, k := range kept {
		if NearIdentical(k, p) {
			return true
		}
	}
	return false
}

func NearIdentical(a, b model.Page) bool {
	return nameDifference(a.DishName, b.DishName) < maxNearDifference &&
		instructionDifference(a.Instructions, b.Instructions) < maxNearDifference &&
		ingredientOverlap(a.Ingredients, b.Ingredients) > minIngredientOverlap
}

// ingredientOverlap is the Jaccard index of the lowercased ingredient names.
func ingredientOverlap(a, b []model.Ingredient) float64 {
	names := func(ings []model.Ingredient) map[string]struct{} {
		set := make(map[string]struct{}, len(ings))
		for _, ing := range ings {
			if n := strings.ToLower(strings.TrimSpace(ing.Name)); n != "" {
				set[n] = struct{}{}
			}
		}
		return set
	}
	return jaccard(names(a), names(b))
}

// instructionDifference averages word-set distance and relative length
// difference: 0 is identical, 1 is unrelated.
func instructionDifference(a, b string) float64 {
	if a == "" || b == "" {
		return 1
	}
	wordA, wordB := wordSet(a), wordSet(b)
	if len(wordA) == 0 || len(wordB) == 0 {
		return 1
	}
	wordDiff := 1 - jaccard(wordA, wordB)
	la, lb := len([]rune(a)), len([]rune(b))
	lenDiff := float64(max(la, lb)-min(la, lb)) / float64(max(la, lb))
	return (wordDiff + lenDiff) / 2
}

func nameDifference(a, b string) float64 {
	wordA, wordB := wordSet(a), wordSet(b)
	if len(wordA) == 0 || len(wordB) == 0 {
		return 1
	}
	return 1 - jaccard(wordA, wordB)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// jaccard returns 0 when either set is empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
