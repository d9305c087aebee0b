package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredient_UnmarshalJSON(t *testing.T) {
	var got []Ingredient
	err := json.Unmarshal([]byte(`[
		" 2 eggs ",
		{"name": "flour", "amount": 250, "unit": "g"},
		{"name": "milk", "amount": "1.5", "unit": "cup"},
		{"name": "salt", "amount": null},
		null
	]`), &got)

	require.NoError(t, err)
	assert.Equal(t, []Ingredient{
		{Name: "2 eggs"},
		{Name: "flour", Amount: "250", Unit: "g"},
		{Name: "milk", Amount: "1.5", Unit: "cup"},
		{Name: "salt"},
		{},
	}, got)
}

func TestIngredient_UnmarshalJSONRejectsGarbage(t *testing.T) {
	var i Ingredient
	assert.Error(t, json.Unmarshal([]byte(`42`), &i))
}

func TestIngredient_String(t *testing.T) {
	assert.Equal(t, "flour 250 g", Ingredient{Name: "flour", Amount: "250", Unit: "g"}.String())
	assert.Equal(t, "salt", Ingredient{Name: "salt", Unit: " "}.String())
}

func TestError_Kinds(t *testing.T) {
	cases := []struct {
		kind      ErrorKind
		sentinel  error
		retryable bool
	}{
		{KindInput, ErrInput, false},
		{KindClusterTooSmall, ErrClusterTooSmall, false},
		{KindTransport, ErrTransport, true},
		{KindValidation, ErrValidation, true},
		{KindConflict, ErrConflict, false},
		{KindPersistence, ErrPersistence, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			cause := errors.New("boom")
			err := fmt.Errorf("wrapped: %w", NewError(tc.kind, "op", cause))

			assert.ErrorIs(t, err, tc.sentinel)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, tc.retryable, IsRetryable(err))
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "cache.Get: input: bad key", Errorf(KindInput, "cache.Get", "bad %s", "key").Error())
	assert.Equal(t, "op: transport", (&Error{Kind: KindTransport, Op: "op"}).Error())
	assert.Empty(t, KindOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestClusterType(t *testing.T) {
	assert.True(t, ClusterImage.Valid())
	assert.False(t, ClusterType("colour").Valid())
	assert.True(t, ClusterImage.AllowsFallback())
	assert.False(t, ClusterFull.AllowsFallback())
	assert.False(t, ClusterIngredients.AllowsFallback())
}
