package synthesis

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agenthands/recipemerge/internal/core/model"
)

// FallbackModel is recorded as merge_model for deterministic merges.
const FallbackModel = "deterministic-fallback"

// compareCompleteness orders pages by ingredient count, instruction length,
// presence of cook time, prep time and description, then a shorter name.
func compareCompleteness(a, b model.Page) int {
	return cmp.Or(
		cmp.Compare(len(a.Ingredients), len(b.Ingredients)),
		cmp.Compare(utf8.RuneCountInString(a.Instructions), utf8.RuneCountInString(b.Instructions)),
		cmp.Compare(present(a.CookTime), present(b.CookTime)),
		cmp.Compare(present(a.PrepTime), present(b.PrepTime)),
		cmp.Compare(present(a.Description), present(b.Description)),
		cmp.Compare(utf8.RuneCountInString(b.DishName), utf8.RuneCountInString(a.DishName)),
	)
}

func present(s string) int {
	if strings.TrimSpace(s) != "" {
		return 1
	}
	return 0
}

// SelectBase returns the most complete page. Ties go to the lowest page id.
func SelectBase(pages []model.Page) model.Page {
	sorted := sortedByID(pages)
	best := sorted[0]
	for _, p := range sorted[1:] {
		if compareCompleteness(p, best) > 0 {
			best = p
		}
	}
	return best
}

// Fallback builds a payload from the most complete page without the
// generative service. Tags are the union over all pages in page order.
func Fallback(pages []model.Page) model.MergePayload {
	base := SelectBase(pages)

	seen := make(map[string]bool)
	var tags []string
	for _, p := range sortedByID(pages) {
		for _, t := range p.Tags {
			key := strings.ToLower(strings.TrimSpace(t))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, strings.TrimSpace(t))
		}
	}

	return model.MergePayload{
		DishName:      base.DishName,
		Ingredients:   slices.Clone(base.Ingredients),
		Instructions:  base.Instructions,
		Description:   base.Description,
		NutritionInfo: base.NutritionInfo,
		PrepTime:      base.PrepTime,
		CookTime:      base.CookTime,
		TotalTime:     base.TotalTime,
		Tags:          tags,
		MergeComments: fmt.Sprintf("deterministic fallback: base page %d of %d pages", base.ID, len(pages)),
	}
}

func sortedByID(pages []model.Page) []model.Page {
	sorted := slices.Clone(pages)
	slices.SortFunc(sorted, func(a, b model.Page) int { return cmp.Compare(a.ID, b.ID) })
	return sorted
}
