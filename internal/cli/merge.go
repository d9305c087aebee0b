package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agenthands/recipemerge/internal/app"
	"github.com/agenthands/recipemerge/internal/core/mergekey"
	"github.com/agenthands/recipemerge/internal/core/model"
)

// ClusterOptions holds the flags shared by clusters and merge-all.
type ClusterOptions struct {
	*RootOptions
	ClusterType string
	Threshold   float64
	EdgesFile   string
}

func (o *ClusterOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.ClusterType, "type", "t", string(model.ClusterFull), "cluster type (image|ingredients|full)")
	cmd.Flags().Float64Var(&o.Threshold, "threshold", 0, "similarity threshold (default merge.threshold)")
	cmd.Flags().StringVar(&o.EdgesFile, "edges", "", "JSON file of edges; the graph is queried when empty")
}

func (o *ClusterOptions) threshold(cmd *cobra.Command, a *app.App) float64 {
	if cmd.Flags().Changed("threshold") {
		return o.Threshold
	}
	return a.Config.Merge.Threshold
}

func (o *ClusterOptions) clusters(ctx context.Context, a *app.App, threshold float64) ([]model.Cluster, error) {
	clusterType := model.ClusterType(o.ClusterType)
	if o.EdgesFile == "" {
		return a.Engine.ClustersFromSource(ctx, clusterType, threshold)
	}
	edges, err := readJSONFile[[]model.SimilarityEdge](o.EdgesFile)
	if err != nil {
		return nil, err
	}
	return a.Engine.BuildClusters(ctx, edges, threshold, clusterType)
}

func NewClustersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClusterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "clusters",
		Short:        "Group pages into candidate merge sets",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				clusters, err := opts.clusters(cmd.Context(), a, opts.threshold(cmd, a))
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), rootOpts, clusters, func(w io.Writer) {
					for _, c := range clusters {
						fmt.Fprintf(w, "%s\t%s\n", mergekey.Key(c.PageIDs), mergekey.Canonical(c.PageIDs))
					}
				})
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClusterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "merge <page-id> <page-id>...",
		Short:        "Merge one page set, reusing the stored recipe when it exists",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid page id %q", arg)
				}
				ids = append(ids, id)
			}
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				res, err := a.Engine.MergeCluster(cmd.Context(), ids, model.ClusterType(opts.ClusterType), opts.threshold(cmd, a))
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), rootOpts, res, func(w io.Writer) {
					r := res.Recipe
					fmt.Fprintf(w, "merged recipe %d %q (%s)\n", r.ID, r.DishName, r.Key)
					fmt.Fprintf(w, "pages %s, model %s, validated %t, cache hit %t\n", r.PagesCSV, r.MergeModel, r.GPTValidated, res.CacheHit)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&opts.ClusterType, "type", "t", string(model.ClusterFull), "cluster type (image|ingredients|full)")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "similarity threshold recorded on the recipe (default merge.threshold)")
	return cmd
}

type batchSummary struct {
	Clusters int          `json:"clusters"`
	Created  int          `json:"created"`
	Hits     int          `json:"cache_hits"`
	Failed   int          `json:"failed"`
	Failures []batchError `json:"failures,omitempty"`
}

type batchError struct {
	Pages     string `json:"pages"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func NewMergeAllCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClusterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "merge-all",
		Short:        "Cluster pages and merge every cluster",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				threshold := opts.threshold(cmd, a)
				clusters, err := opts.clusters(cmd.Context(), a, threshold)
				if err != nil {
					return err
				}

				sum := batchSummary{Clusters: len(clusters)}
				for _, o := range a.Engine.MergeAll(cmd.Context(), clusters, threshold) {
					switch {
					case o.Err != nil:
						sum.Failed++
						sum.Failures = append(sum.Failures, batchError{
							Pages:     mergekey.Canonical(o.Cluster.PageIDs),
							Error:     o.Err.Error(),
							Retryable: model.IsRetryable(o.Err),
						})
					case o.Result.CacheHit:
						sum.Hits++
					default:
						sum.Created++
					}
				}

				err = output(cmd.OutOrStdout(), rootOpts, sum, func(w io.Writer) {
					fmt.Fprintf(w, "clusters %d: created %d, cache hits %d, failed %d\n", sum.Clusters, sum.Created, sum.Hits, sum.Failed)
					for _, f := range sum.Failures {
						fmt.Fprintf(w, "  %s: %s (retryable %t)\n", f.Pages, f.Error, f.Retryable)
					}
				})
				if err == nil && sum.Failed > 0 {
					err = fmt.Errorf("%d of %d clusters failed", sum.Failed, sum.Clusters)
				}
				return err
			})
		},
	}
	opts.bind(cmd)
	return cmd
}
