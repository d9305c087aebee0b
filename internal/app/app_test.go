package app

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/recipemerge/internal/config"
	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/core/synthesis"
	"github.com/agenthands/recipemerge/internal/store/storetest"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Database = storetest.SQLiteConfig(t)
	cfg.Memgraph.URI = ""
	cfg.Merge.MaxAttempts = 1
	return cfg
}

func TestNew_MergesWithInjectedLLM(t *testing.T) {
	ctx := context.Background()
	mock := &synthesis.MockLLMClient{Response: `{"dish_name": "Plov", "ingredients": ["rice"], "instructions": "Fry."}`}

	a, err := New(ctx, testConfig(t), nil, Options{LLM: mock})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Similarity)
	require.NoError(t, a.Pages.SavePages(ctx, []model.Page{
		{ID: 1, DishName: "Plov", Ingredients: []model.Ingredient{{Name: "rice"}}, Instructions: "Fry."},
		{ID: 2, DishName: "Plov", Ingredients: []model.Ingredient{{Name: "rice"}}, Instructions: "Fry."},
	}))

	res, err := a.Engine.MergeCluster(ctx, []int64{2, 1}, model.ClusterFull, 0.9)
	require.NoError(t, err)
	assert.Equal(t, "Plov", res.Recipe.DishName)
	assert.Equal(t, "gpt-4o-mini", res.Recipe.MergeModel)

	_, err = a.Engine.ClustersFromSource(ctx, model.ClusterFull, 0.9)
	assert.ErrorIs(t, err, model.ErrInput)
}

func TestNew_UnsupportedProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "watson"

	_, err := New(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)
}

func TestNew_SkipsUnreachableGraph(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memgraph.URI = "bolt://127.0.0.1:1"

	a, err := New(context.Background(), cfg, nil, Options{LLM: &synthesis.MockLLMClient{}})
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Similarity)
}

func TestNew_RedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("set REDIS_ADDR to run redis integration tests")
	}
	cfg := testConfig(t)
	cfg.Merge.Locker = "redis"
	cfg.Redis.Addr = addr

	a, err := New(context.Background(), cfg, nil, Options{LLM: &synthesis.MockLLMClient{}})
	require.NoError(t, err)
	a.Close()
}
