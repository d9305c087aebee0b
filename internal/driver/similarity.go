package driver

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/logger"
)

// GraphSimilarity reads and writes precomputed similarity edges in the
// graph. It never computes scores.
type GraphSimilarity struct {
	Driver QueryRunner
	Log    *logger.Logger
}

func NewGraphSimilarity(d QueryRunner, log *logger.Logger) *GraphSimilarity {
	if log == nil {
		log = logger.NewNop()
	}
	return &GraphSimilarity{Driver: d, Log: log.With("component", "GraphSimilarity")}
}

// Edges returns every stored edge of clusterType scoring at or above
// threshold.
func (g *GraphSimilarity) Edges(ctx context.Context, clusterType model.ClusterType, threshold float64) ([]model.SimilarityEdge, error) {
	res, err := g.Driver.ExecuteQuery(ctx, GetSimilarEdgesQuery, map[string]interface{}{
		"cluster_type": string(clusterType),
		"threshold":    threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("load similarity edges: %w", err)
	}

	edges := make([]model.SimilarityEdge, 0, len(res.Records))
	for _, rec := range res.Records {
		a, errA := intValue(rec, "page_a")
		b, errB := intValue(rec, "page_b")
		score, errS := floatValue(rec, "score")
		if errA != nil || errB != nil || errS != nil {
			g.Log.Warn("Skipping malformed similarity record", "values", rec.Values)
			continue
		}
		edges = append(edges, model.SimilarityEdge{PageA: a, PageB: b, Score: score, ClusterType: clusterType})
	}
	return edges, nil
}

// Neighbors returns up to top pages most similar to pageID, best first.
func (g *GraphSimilarity) Neighbors(ctx context.Context, pageID int64, clusterType model.ClusterType, top int) ([]model.Neighbor, error) {
	res, err := g.Driver.ExecuteQuery(ctx, GetNeighborsQuery, map[string]interface{}{
		"page_id":      pageID,
		"cluster_type": string(clusterType),
		"limit":        int64(top),
	})
	if err != nil {
		return nil, fmt.Errorf("load neighbors of page %d: %w", pageID, err)
	}

	out := make([]model.Neighbor, 0, len(res.Records))
	for _, rec := range res.Records {
		id, errID := intValue(rec, "page_id")
		score, errS := floatValue(rec, "score")
		if errID != nil || errS != nil {
			g.Log.Warn("Skipping malformed neighbor record", "page_id", pageID, "values", rec.Values)
			continue
		}
		out = append(out, model.Neighbor{PageID: id, Score: score})
	}
	return out, nil
}

// NeighborEdges turns per-page top-K lookups into edges, keeping hits at
// or above threshold. Each unordered pair is emitted once.
func (g *GraphSimilarity) NeighborEdges(ctx context.Context, pageIDs []int64, clusterType model.ClusterType, threshold float64, top int) ([]model.SimilarityEdge, error) {
	seen := make(map[[2]int64]bool)
	var edges []model.SimilarityEdge
	for _, id := range pageIDs {
		neighbors, err := g.Neighbors(ctx, id, clusterType, top)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if n.PageID == id || !(n.Score >= threshold) {
				continue
			}
			pair := orderedPair(id, n.PageID)
			if seen[pair] {
				continue
			}
			seen[pair] = true
			edges = append(edges, model.SimilarityEdge{PageA: pair[0], PageB: pair[1], Score: n.Score, ClusterType: clusterType})
		}
	}
	return edges, nil
}

// SaveEdges upserts edges into the graph, returning how many were written.
func (g *GraphSimilarity) SaveEdges(ctx context.Context, edges []model.SimilarityEdge) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}
	rows := make([]interface{}, 0, len(edges))
	for _, e := range edges {
		if e.PageA == e.PageB || !e.ClusterType.Valid() {
			g.Log.Warn("Skipping invalid edge", "page_a", e.PageA, "page_b", e.PageB, "cluster_type", e.ClusterType)
			continue
		}
		pair := orderedPair(e.PageA, e.PageB)
		rows = append(rows, map[string]interface{}{
			"page_a":       pair[0],
			"page_b":       pair[1],
			"score":        e.Score,
			"cluster_type": string(e.ClusterType),
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if _, err := g.Driver.ExecuteQuery(ctx, SaveSimilarEdgesQuery, map[string]interface{}{"edges": rows}); err != nil {
		return 0, fmt.Errorf("save similarity edges: %w", err)
	}
	g.Log.Debug("Saved similarity edges", "count", len(rows))
	return len(rows), nil
}

func orderedPair(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

func intValue(rec *neo4j.Record, key string) (int64, error) {
	v, ok := rec.Get(key)
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	}
	return 0, fmt.Errorf("%s: unexpected type %T", key, v)
}

func floatValue(rec *neo4j.Record, key string) (float64, error) {
	v, ok := rec.Get(key)
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	}
	return 0, fmt.Errorf("%s: unexpected type %T", key, v)
}
