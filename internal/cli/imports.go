package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agenthands/recipemerge/internal/app"
	"github.com/agenthands/recipemerge/internal/core/model"
)

var errNoGraph = errors.New("similarity graph unavailable: check memgraph.uri")

// NewImportPagesCommand loads page snapshots from a JSON array.
func NewImportPagesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "import-pages <pages.json>",
		Short:        "Upsert page snapshots from a JSON file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := readJSONFile[[]model.Page](args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				if err := a.Pages.SavePages(cmd.Context(), pages); err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), rootOpts, map[string]int{"pages": len(pages)}, func(w io.Writer) {
					fmt.Fprintf(w, "imported %d pages\n", len(pages))
				})
			})
		},
	}
}

// NewImportEdgesCommand writes similarity edges into the graph.
func NewImportEdgesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "import-edges <edges.json>",
		Short:        "Store similarity edges in Memgraph",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			edges, err := readJSONFile[[]model.SimilarityEdge](args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				if a.Similarity == nil {
					return errNoGraph
				}
				saved, err := a.Similarity.SaveEdges(cmd.Context(), edges)
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), rootOpts, map[string]int{"edges": saved, "skipped": len(edges) - saved}, func(w io.Writer) {
					fmt.Fprintf(w, "saved %d edges, skipped %d\n", saved, len(edges)-saved)
				})
			})
		},
	}
}

type NeighborsOptions struct {
	*RootOptions
	ClusterType string
	Top         int
}

func NewNeighborsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NeighborsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "neighbors <page-id>",
		Short:        "List the most similar pages for one page",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid page id %q", args[0])
			}
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				if a.Similarity == nil {
					return errNoGraph
				}
				top := opts.Top
				if !cmd.Flags().Changed("top") {
					top = a.Config.Merge.NeighborTop
				}
				hits, err := a.Similarity.Neighbors(cmd.Context(), id, model.ClusterType(opts.ClusterType), top)
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), rootOpts, hits, func(w io.Writer) {
					for _, n := range hits {
						fmt.Fprintf(w, "%d\t%.4f\n", n.PageID, n.Score)
					}
				})
			})
		},
	}

	cmd.Flags().StringVarP(&opts.ClusterType, "type", "t", string(model.ClusterFull), "cluster type (image|ingredients|full)")
	cmd.Flags().IntVar(&opts.Top, "top", 10, "number of neighbours")
	return cmd
}
