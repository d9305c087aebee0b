package cluster

import (
	"cmp"
	"slices"

	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/logger"
)

// MinClusterSize is the smallest component emitted as a cluster.
const MinClusterSize = 2

// PageSet is the set of page ids known to the page store. A nil PageSet
// accepts every id.
type PageSet map[int64]struct{}

func NewPageSet(ids []int64) PageSet {
	s := make(PageSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s PageSet) Has(id int64) bool {
	if s == nil {
		return true
	}
	_, ok := s[id]
	return ok
}

// Builder groups pages into candidate merge sets: the connected components
// of the graph whose edges are the similarity edges scoring at or above the
// threshold.
type Builder struct {
	Log *logger.Logger
}

func NewBuilder(log *logger.Logger) *Builder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{Log: log.With("component", "ClusterBuilder")}
}

// Build returns the clusters for one cluster type. Members are ascending
// and clusters are ordered by their smallest member, so the output does not
// depend on edge order. Edges of another cluster type or touching a page
// outside known are skipped; an edge with an empty cluster type is taken as
// belonging to the requested one.
func (b *Builder) Build(edges []model.SimilarityEdge, threshold float64, clusterType model.ClusterType, known PageSet) []model.Cluster {
	adj := make(map[int64][]int64)
	skipped := 0

	for _, e := range edges {
		if e.ClusterType != "" && e.ClusterType != clusterType {
			b.Log.Warn("Skipping edge of another cluster type",
				"page_a", e.PageA, "page_b", e.PageB, "edge_type", e.ClusterType, "cluster_type", clusterType)
			skipped++
			continue
		}
		if !known.Has(e.PageA) || !known.Has(e.PageB) {
			b.Log.Warn("Skipping edge referencing unknown page",
				"page_a", e.PageA, "page_b", e.PageB, "cluster_type", clusterType)
			skipped++
			continue
		}
		if e.PageA == e.PageB {
			continue
		}
		// Inclusive boundary; NaN scores never qualify.
		if !(e.Score >= threshold) {
			continue
		}
		adj[e.PageA] = append(adj[e.PageA], e.PageB)
		adj[e.PageB] = append(adj[e.PageB], e.PageA)
	}

	nodes := make([]int64, 0, len(adj))
	for id := range adj {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)

	visited := make(map[int64]bool, len(nodes))
	var clusters []model.Cluster

	for _, n := range nodes {
		if visited[n] {
			continue
		}
		var component []int64
		b.dfs(n, adj, visited, &component)

		if len(component) < MinClusterSize {
			continue
		}
		slices.Sort(component)
		clusters = append(clusters, model.Cluster{ClusterType: clusterType, PageIDs: component})
	}

	slices.SortFunc(clusters, func(x, y model.Cluster) int {
		return cmp.Compare(x.PageIDs[0], y.PageIDs[0])
	})

	b.Log.Debug("Built clusters",
		"cluster_type", clusterType, "threshold", threshold,
		"edges", len(edges), "skipped", skipped, "clusters", len(clusters))
	return clusters
}

func (b *Builder) dfs(u int64, adj map[int64][]int64, visited map[int64]bool, component *[]int64) {
	visited[u] = true
	*component = append(*component, u)
	for _, v := range adj[u] {
		if !visited[v] {
			b.dfs(v, adj, visited, component)
		}
	}
}
