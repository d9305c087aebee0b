package server

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/recipemerge/internal/core"
	"github.com/agenthands/recipemerge/internal/core/model"
	"github.com/agenthands/recipemerge/internal/logger"
)

type RecipeReader interface {
	FindByKey(ctx context.Context, key string) (*model.MergedRecipe, error)
}

type Server struct {
	Engine           *core.Engine
	Recipes          RecipeReader
	DefaultThreshold float64
	Log              *logger.Logger
}

func NewServer(engine *core.Engine, recipes RecipeReader, defaultThreshold float64, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		Engine:           engine,
		Recipes:          recipes,
		DefaultThreshold: defaultThreshold,
		Log:              log.With("component", "HTTPServer"),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.Health)
	r.POST("/clusters", s.BuildClusters)
	r.POST("/merge", s.Merge)
	r.POST("/merge/all", s.MergeAll)
	r.GET("/merged/:key", s.GetMerged)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ClustersRequest struct {
	ClusterType model.ClusterType `json:"cluster_type" binding:"required"`
	Threshold   *float64          `json:"threshold"`
	// Edges are clustered directly; when empty the configured similarity
	// source is queried.
	Edges []model.SimilarityEdge `json:"edges"`
}

func (s *Server) BuildClusters(c *gin.Context) {
	var req ClustersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	threshold := s.threshold(req.Threshold)

	var (
		clusters []model.Cluster
		err      error
	)
	if len(req.Edges) > 0 {
		clusters, err = s.Engine.BuildClusters(c.Request.Context(), req.Edges, threshold, req.ClusterType)
	} else {
		clusters, err = s.Engine.ClustersFromSource(c.Request.Context(), req.ClusterType, threshold)
	}
	if err != nil {
		s.fail(c, "Failed to build clusters", err)
		return
	}
	if clusters == nil {
		clusters = []model.Cluster{}
	}
	c.JSON(http.StatusOK, gin.H{"cluster_type": req.ClusterType, "threshold": threshold, "clusters": clusters})
}

type MergeRequest struct {
	PageIDs     []int64           `json:"page_ids" binding:"required"`
	ClusterType model.ClusterType `json:"cluster_type" binding:"required"`
	Threshold   *float64          `json:"threshold"`
}

func (s *Server) Merge(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	res, err := s.Engine.MergeCluster(c.Request.Context(), req.PageIDs, req.ClusterType, s.threshold(req.Threshold))
	if err != nil {
		s.fail(c, "Failed to merge cluster", err)
		return
	}

	status := http.StatusCreated
	if res.CacheHit {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

type MergeAllRequest struct {
	ClusterType model.ClusterType `json:"cluster_type" binding:"required"`
	Threshold   *float64          `json:"threshold"`
}

type mergeOutcome struct {
	PageIDs   []int64            `json:"page_ids"`
	Key       string             `json:"pages_hash_sha256"`
	RecipeID  int64              `json:"merged_recipe_id,omitempty"`
	CacheHit  bool               `json:"cache_hit"`
	Path      []model.MergeState `json:"path,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorKind model.ErrorKind    `json:"error_kind,omitempty"`
	Retryable bool               `json:"retryable,omitempty"`
}

// MergeAll clusters the source edges and merges every cluster.
func (s *Server) MergeAll(c *gin.Context) {
	var req MergeAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	threshold := s.threshold(req.Threshold)
	ctx := c.Request.Context()

	clusters, err := s.Engine.ClustersFromSource(ctx, req.ClusterType, threshold)
	if err != nil {
		s.fail(c, "Failed to build clusters", err)
		return
	}

	outcomes := s.Engine.MergeAll(ctx, clusters, threshold)
	out := make([]mergeOutcome, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		m := mergeOutcome{PageIDs: o.Cluster.PageIDs, Key: o.Key}
		if o.Err != nil {
			failed++
			m.Error = o.Err.Error()
			m.ErrorKind = model.KindOf(o.Err)
			m.Retryable = model.IsRetryable(o.Err)
		} else {
			m.RecipeID = o.Result.Recipe.ID
			m.CacheHit = o.Result.CacheHit
			m.Path = o.Result.Path
		}
		out = append(out, m)
	}
	c.JSON(http.StatusOK, gin.H{"clusters": len(clusters), "failed": failed, "results": out})
}

var keyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func (s *Server) GetMerged(c *gin.Context) {
	key := c.Param("key")
	if !keyPattern.MatchString(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key must be a lowercase sha256 hex digest"})
		return
	}

	r, err := s.Recipes.FindByKey(c.Request.Context(), key)
	if err != nil {
		s.fail(c, "Failed to load merged recipe", err)
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "merged recipe not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) threshold(v *float64) float64 {
	if v == nil {
		return s.DefaultThreshold
	}
	return *v
}

func (s *Server) fail(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInput), errors.Is(err, model.ErrClusterTooSmall):
		status = http.StatusBadRequest
	case model.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.Log.Error(msg, "error", err)
	}
	c.JSON(status, gin.H{
		"error":     err.Error(),
		"kind":      model.KindOf(err),
		"retryable": model.IsRetryable(err),
	})
}
