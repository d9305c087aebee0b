package core

import (
	"context"
	"sync"

	"github.com/agenthands/recipemerge/internal/core/mergekey"
	"github.com/agenthands/recipemerge/internal/core/model"
)

type MockSource struct {
	EdgeList []model.SimilarityEdge
	Err      error
}

func (m *MockSource) Edges(ctx context.Context, clusterType model.ClusterType, threshold float64) ([]model.SimilarityEdge, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.EdgeList, nil
}

type MockPageIndex struct {
	IDs []int64
}

func (m *MockPageIndex) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	have := make(map[int64]bool, len(m.IDs))
	for _, id := range m.IDs {
		have[id] = true
	}
	var out []int64
	for _, id := range ids {
		if have[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// MockMerger records calls and fails for keys listed in Fail.
type MockMerger struct {
	mu    sync.Mutex
	Calls []string
	Fail  map[string]error
}

func (m *MockMerger) GetOrCreate(ctx context.Context, key string, pageIDs []int64, clusterType model.ClusterType, threshold float64) (*model.MergeResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, key)
	m.mu.Unlock()
	if err := m.Fail[key]; err != nil {
		return nil, err
	}
	return &model.MergeResult{
		Recipe: &model.MergedRecipe{Key: key, PagesCSV: mergekey.Canonical(pageIDs), ClusterType: clusterType, ScoreThreshold: threshold},
		Path:   []model.MergeState{model.StatePending, model.StateSynthesizing, model.StateValidated, model.StateDone},
	}, nil
}
