package model

import "time"

// MergedRecipe is the canonical entity synthesized from one cluster. Key is
// unique; a row is never mutated after creation.
type MergedRecipe struct {
	ID             int64        `json:"id"`
	Key            string       `json:"pages_hash_sha256"`
	PagesCSV       string       `json:"pages_csv"`
	PageIDs        []int64      `json:"page_ids"`
	DishName       string       `json:"dish_name"`
	Ingredients    []Ingredient `json:"ingredients"`
	Instructions   string       `json:"instructions"`
	Description    string       `json:"description,omitempty"`
	NutritionInfo  string       `json:"nutrition_info,omitempty"`
	PrepTime       string       `json:"prep_time,omitempty"`
	CookTime       string       `json:"cook_time,omitempty"`
	TotalTime      string       `json:"total_time,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	Language       string       `json:"language,omitempty"`
	MergeComments  string       `json:"merge_comments,omitempty"`
	ClusterType    ClusterType  `json:"cluster_type"`
	ScoreThreshold float64      `json:"score_threshold"`
	MergeModel     string       `json:"merge_model"`
	GPTValidated   bool         `json:"gpt_validated"`
	CreatedAt      time.Time    `json:"created_at"`
	Images         []Image      `json:"images,omitempty"`
}

// Image is content-addressed by the SHA-256 of its URL.
type Image struct {
	ID        int64     `json:"id"`
	URL       string    `json:"image_url"`
	URLHash   string    `json:"image_url_hash"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
