package model

// ClusterType names the similarity basis a cluster was built from.
type ClusterType string

const (
	ClusterImage       ClusterType = "image"
	ClusterIngredients ClusterType = "ingredients"
	ClusterFull        ClusterType = "full"
)

func (t ClusterType) Valid() bool {
	switch t {
	case ClusterImage, ClusterIngredients, ClusterFull:
		return true
	}
	return false
}

// AllowsFallback reports whether an exhausted synthesis may fall back to a
// deterministic merge instead of aborting.
func (t ClusterType) AllowsFallback() bool {
	return t == ClusterImage
}

type SimilarityEdge struct {
	PageA       int64       `json:"page_id_a"`
	PageB       int64       `json:"page_id_b"`
	Score       float64     `json:"score"`
	ClusterType ClusterType `json:"cluster_type"`
}

// Cluster is a candidate merge set. PageIDs are distinct and ascending.
type Cluster struct {
	ClusterType ClusterType `json:"cluster_type"`
	PageIDs     []int64     `json:"page_ids"`
}

// Neighbor is one hit of a per-page nearest-neighbour lookup.
type Neighbor struct {
	PageID int64   `json:"page_id"`
	Score  float64 `json:"score"`
}
