package synthesis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agenthands/recipemerge/internal/config"
	"github.com/agenthands/recipemerge/internal/core/model"
)

const (
	maxPromptIngredients  = 30
	maxPromptInstructions = 3000
)

// RenderMergePrompt fills the named placeholders of tmpl. Everything else in
// tmpl is kept verbatim.
func RenderMergePrompt(tmpl string, clusterType model.ClusterType, threshold float64, pages []model.Page) string {
	return strings.NewReplacer(
		config.PlaceholderClusterType, string(clusterType),
		config.PlaceholderThreshold, strconv.FormatFloat(threshold, 'f', 2, 64),
		config.PlaceholderRecipes, RenderPages(pages),
	).Replace(tmpl)
}

// RenderPages formats the source recipes for the merge prompt. Each page
// contributes at most maxPromptIngredients ingredients and
// maxPromptInstructions characters of instructions.
func RenderPages(pages []model.Page) string {
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "RECIPE %d (page %d):\n", i+1, p.ID)
		fmt.Fprintf(&sb, "Name: %s\n", p.DishName)
		fmt.Fprintf(&sb, "Prep: %s, Cook: %s, Total: %s\n", orNA(p.PrepTime), orNA(p.CookTime), orNA(p.TotalTime))
		if p.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", p.Description)
		}
		sb.WriteString("Ingredients:\n")
		for j, ing := range p.Ingredients {
			if j == maxPromptIngredients {
				break
			}
			fmt.Fprintf(&sb, "  - %s: %s %s\n", ing.Name, ing.Amount, ing.Unit)
		}
		fmt.Fprintf(&sb, "Instructions: %s", truncateRunes(p.Instructions, maxPromptInstructions))
	}
	return sb.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
