package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Page is a snapshot of one extracted recipe record. Pages are owned by the
// extraction pipeline and only read by the merge engine.
type Page struct {
	ID            int64        `json:"id"`
	DishName      string       `json:"dish_name"`
	Ingredients   []Ingredient `json:"ingredients"`
	Instructions  string       `json:"instructions"`
	Description   string       `json:"description,omitempty"`
	NutritionInfo string       `json:"nutrition_info,omitempty"`
	PrepTime      string       `json:"prep_time,omitempty"`
	CookTime      string       `json:"cook_time,omitempty"`
	TotalTime     string       `json:"total_time,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	Category      string       `json:"category,omitempty"`
	Language      string       `json:"language,omitempty"`
	ImageURLs     []string     `json:"image_urls,omitempty"`
}

// Ingredient is one ingredients_with_amounts entry.
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount,omitempty"`
	Unit   string `json:"unit,omitempty"`
}

func (i Ingredient) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{i.Name, i.Amount, i.Unit} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// UnmarshalJSON accepts either a bare string ("2 eggs") or an object whose
// amount may be a number or a string.
func (i *Ingredient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = Ingredient{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = Ingredient{Name: strings.TrimSpace(s)}
		return nil
	}

	var raw struct {
		Name   string          `json:"name"`
		Amount json.RawMessage `json:"amount"`
		Unit   string          `json:"unit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("ingredient: %w", err)
	}
	*i = Ingredient{
		Name:   strings.TrimSpace(raw.Name),
		Amount: amountString(raw.Amount),
		Unit:   strings.TrimSpace(raw.Unit),
	}
	return nil
}

func amountString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
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
	return strings.Trim(string(raw), `"`)
}
