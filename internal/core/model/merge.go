package model

// MergePayload holds the canonical fields produced for one cluster, either
// by the generative service or by the deterministic fallback.
type MergePayload struct {
	DishName      string       `json:"dish_name"`
	Ingredients   []Ingredient `json:"ingredients"`
	Instructions  string       `json:"instructions"`
	Description   string       `json:"description,omitempty"`
	NutritionInfo string       `json:"nutrition_info,omitempty"`
	PrepTime      string       `json:"prep_time,omitempty"`
	CookTime      string       `json:"cook_time,omitempty"`
	TotalTime     string       `json:"total_time,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	MergeComments string       `json:"merge_comments,omitempty"`
}

// MergeState tracks one cluster through a merge attempt.
type MergeState string

const (
	StatePending      MergeState = "PENDING"
	StateSynthesizing MergeState = "SYNTHESIZING"
	StateValidated    MergeState = "VALIDATED"
	StateFallback     MergeState = "FALLBACK"
	StateDone         MergeState = "DONE"
	StateFailed       MergeState = "FAILED"
)

// MergeResult is what the merge cache hands back for one cluster.
type MergeResult struct {
	Recipe   *MergedRecipe `json:"recipe"`
	CacheHit bool          `json:"cache_hit"`
	// Path lists the states visited, ending in DONE or FAILED.
	Path []MergeState `json:"path"`
}
