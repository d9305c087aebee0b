// Package core wires clustering, content addressing and the merge cache
// into the engine entry points.
package core

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/agenthands/recipemerge/internal/core/cluster"
	"github.com/agenthands/recipemerge/internal/core/mergekey"
	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/logger"
)

// EdgeSource yields precomputed similarity edges.
type EdgeSource interface {
	Edges(ctx context.Context, clusterType model.ClusterType, threshold float64) ([]model.SimilarityEdge, error)
}

// PageIndex reports which page ids exist in the page store.
type PageIndex interface {
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

type Merger interface {
	GetOrCreate(ctx context.Context, key string, pageIDs []int64, clusterType model.ClusterType, threshold float64) (*model.MergeResult, error)
}

type Engine struct {
	Pages   PageIndex
	Source  EdgeSource
	Cache   Merger
	Builder *cluster.Builder
	Workers int
	Log     *logger.Logger
}

// NewEngine builds an engine. pages and source may be nil: without pages
// every edge endpoint is accepted, without source only caller-supplied
// edges can be clustered.
func NewEngine(pages PageIndex, source EdgeSource, cache Merger, workers int, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		Pages:   pages,
		Source:  source,
		Cache:   cache,
		Builder: cluster.NewBuilder(log),
		Workers: workers,
		Log:     log.With("component", "Engine"),
	}
}

// BuildClusters groups the pages joined by edges scoring at or above
// threshold. Edges naming a page unknown to the page store are skipped.
func (e *Engine) BuildClusters(ctx context.Context, edges []model.SimilarityEdge, threshold float64, clusterType model.ClusterType) ([]model.Cluster, error) {
	const op = "core.BuildClusters"
	if !clusterType.Valid() {
		return nil, model.Errorf(model.KindInput, op, "unsupported cluster type %q", clusterType)
	}
	if math.IsNaN(threshold) {
		return nil, model.Errorf(model.KindInput, op, "threshold is NaN")
	}

	var known cluster.PageSet
	if e.Pages != nil && len(edges) > 0 {
		ids, err := e.Pages.ExistingIDs(ctx, endpoints(edges))
		if err != nil {
			return nil, model.NewError(model.KindPersistence, op, err)
		}
		known = cluster.NewPageSet(ids)
	}

	clusters := e.Builder.Build(edges, threshold, clusterType, known)
	e.Log.Info("Clusters built", "cluster_type", clusterType, "threshold", threshold, "edges", len(edges), "clusters", len(clusters))
	return clusters, nil
}

// ClustersFromSource loads edges from the configured source and clusters
// them.
func (e *Engine) ClustersFromSource(ctx context.Context, clusterType model.ClusterType, threshold float64) ([]model.Cluster, error) {
	const op = "core.ClustersFromSource"
	if e.Source == nil {
		return nil, model.Errorf(model.KindInput, op, "no similarity source configured")
	}
	if !clusterType.Valid() {
		return nil, model.Errorf(model.KindInput, op, "unsupported cluster type %q", clusterType)
	}
	edges, err := e.Source.Edges(ctx, clusterType, threshold)
	if err != nil {
		return nil, model.NewError(model.KindTransport, op, err)
	}
	return e.BuildClusters(ctx, edges, threshold, clusterType)
}

// MergeCluster returns the merged recipe for the page set, creating it on
// first request. Order and duplicates in pageIDs do not matter.
func (e *Engine) MergeCluster(ctx context.Context, pageIDs []int64, clusterType model.ClusterType, threshold float64) (*model.MergeResult, error) {
	const op = "core.MergeCluster"
	if !clusterType.Valid() {
		return nil, model.Errorf(model.KindInput, op, "unsupported cluster type %q", clusterType)
	}
	if math.IsNaN(threshold) {
		return nil, model.Errorf(model.KindInput, op, "threshold is NaN")
	}
	ids := mergekey.Normalize(pageIDs)
	if len(ids) < cluster.MinClusterSize {
		return nil, model.Errorf(model.KindClusterTooSmall, op, "need at least %d distinct pages, got %d", cluster.MinClusterSize, len(ids))
	}
	return e.Cache.GetOrCreate(ctx, mergekey.Key(ids), ids, clusterType, threshold)
}

// ClusterOutcome is the result of merging one cluster in a batch.
type ClusterOutcome struct {
	Cluster model.Cluster      `json:"cluster"`
	Key     string             `json:"pages_hash_sha256"`
	Result  *model.MergeResult `json:"result,omitempty"`
	Err     error              `json:"-"`
}

// MergeAll merges clusters with at most Workers in flight. A failed
// cluster never cancels the others; outcomes keep the input order.
func (e *Engine) MergeAll(ctx context.Context, clusters []model.Cluster, threshold float64) []ClusterOutcome {
	outcomes := make([]ClusterOutcome, len(clusters))

	var g errgroup.Group
	g.SetLimit(e.Workers)
	for i, c := range clusters {
		g.Go(func() error {
			res, err := e.MergeCluster(ctx, c.PageIDs, c.ClusterType, threshold)
			outcomes[i] = ClusterOutcome{Cluster: c, Key: mergekey.Key(c.PageIDs), Result: res, Err: err}
			if err != nil {
				e.Log.Warn("Cluster merge failed", "pages", mergekey.Canonical(c.PageIDs), "retryable", model.IsRetryable(err), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	created, hits, failed := 0, 0, 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
		case o.Result.CacheHit:
			hits++
		default:
			created++
		}
	}
	e.Log.Info("Batch merge finished", "clusters", len(clusters), "created", created, "cache_hits", hits, "failed", failed)
	return outcomes
}

func endpoints(edges []model.SimilarityEdge) []int64 {
	ids := make([]int64, 0, len(edges)*2)
	for _, e := range edges {
		ids = append(ids, e.PageA, e.PageB)
	}
	return mergekey.Normalize(ids)
}
