package assemble

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/agenthands/recipemerge/internal/core/mergekey"
	"github.com/agenthands/recipemerge/internal/core/model"
)

// UnknownLanguage is recorded when no constituent page carries a language.
const UnknownLanguage = "unknown"

// Input is everything needed to build one merged recipe.
type Input struct {
	Key          string
	PageIDs      []int64
	Pages        []model.Page
	ClusterType  model.ClusterType
	Threshold    float64
	Payload      model.MergePayload
	GPTValidated bool
	MergeModel   string
}

// Assembler turns a synthesized payload into a MergedRecipe with its
// provenance and image union. It does no I/O.
type Assembler struct {
	Now func() time.Time
}

func NewAssembler() *Assembler {
	return &Assembler{Now: func() time.Time { return time.Now().UTC() }}
}

func (a *Assembler) Assemble(in Input) (*model.MergedRecipe, error) {
	const op = "assemble.Assemble"

	ids := mergekey.Normalize(in.PageIDs)
	if len(ids) == 0 {
		return nil, model.Errorf(model.KindInput, op, "no page ids")
	}
	key := mergekey.Key(ids)
	if in.Key != "" && in.Key != key {
		return nil, model.Errorf(model.KindInput, op, "key %s does not match pages %s", in.Key, mergekey.Canonical(ids))
	}

	byID := make(map[int64]model.Page, len(in.Pages))
	for _, p := range in.Pages {
		byID[p.ID] = p
	}
	pages := make([]model.Page, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, model.Errorf(model.KindInput, op, "page %d has no snapshot", id)
		}
		pages = append(pages, p)
	}

	payload := in.Payload
	return &model.MergedRecipe{
		Key:            key,
		PagesCSV:       mergekey.Canonical(ids),
		PageIDs:        ids,
		DishName:       payload.DishName,
		Ingredients:    slices.Clone(payload.Ingredients),
		Instructions:   payload.Instructions,
		Description:    payload.Description,
		NutritionInfo:  payload.NutritionInfo,
		PrepTime:       payload.PrepTime,
		CookTime:       payload.CookTime,
		TotalTime:      payload.TotalTime,
		Tags:           slices.Clone(payload.Tags),
		Language:       Language(pages),
		MergeComments:  payload.MergeComments,
		ClusterType:    in.ClusterType,
		ScoreThreshold: in.Threshold,
		MergeModel:     in.MergeModel,
		GPTValidated:   in.GPTValidated,
		CreatedAt:      a.now(),
		Images:         Images(pages),
	}, nil
}

func (a *Assembler) now() time.Time {
	if a.Now == nil {
		return time.Now().UTC()
	}
	return a.Now()
}

// Images is the union of the pages' image URLs, deduplicated by URL hash,
// in first-seen order with pages taken by ascending id.
func Images(pages []model.Page) []model.Image {
	sorted := slices.Clone(pages)
	slices.SortFunc(sorted, func(a, b model.Page) int { return cmp.Compare(a.ID, b.ID) })

	seen := make(map[string]bool)
	var images []model.Image
	for _, p := range sorted {
		for _, u := range p.ImageURLs {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			h := mergekey.URLHash(u)
			if seen[h] {
				continue
			}
			seen[h] = true
			images = append(images, model.Image{URL: u, URLHash: h})
		}
	}
	return images
}

// Language is the most common non-empty language among the pages. Ties go
// to the language of the lowest page id among the tied ones.
func Language(pages []model.Page) string {
	sorted := slices.Clone(pages)
	slices.SortFunc(sorted, func(a, b model.Page) int { return cmp.Compare(a.ID, b.ID) })

	counts := make(map[string]int)
	var order []string
	for _, p := range sorted {
		lang := strings.TrimSpace(p.Language)
		if lang == "" {
			continue
		}
		if counts[lang] == 0 {
			order = append(order, lang)
		}
		counts[lang]++
	}

	best := UnknownLanguage
	bestCount := 0
	for _, lang := range order {
		if counts[lang] > bestCount {
			best, bestCount = lang, counts[lang]
		}
	}
	return best
}
