package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	api "github.com/kailas-cloud/medscribe/internal/transport/chi"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find stored cases similar to a query",
		Long: `Search stored cases by similarity.

Examples:
  medscribectl search "боль в груди при нагрузке"
  medscribectl search "одышка" --top-k 5 --filter specialty=Кардиология`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topK, _ := cmd.Flags().GetInt("top-k")
			rawFilters, _ := cmd.Flags().GetStringSlice("filter")
			filters, err := parsePairs(rawFilters)
			if err != nil {
				return err
			}

			req := api.SearchRequest{Query: args[0], FilterMetadata: toAny(filters)}
			if cmd.Flags().Changed("top-k") {
				req.TopK = &topK
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			results, err := c.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), results)
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().IntP("top-k", "k", 3, "number of results (1-10)")
	cmd.Flags().StringSlice("filter", nil, "metadata filter key=value (repeatable)")

	return cmd
}

func toAny(m map[string]string) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func printResults(w io.Writer, results []api.SearchResultItem) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no similar documents")
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. %s  %s\n", i+1, heading(r.ID), score(fmt.Sprintf("%.3f", r.Similarity)))
		fmt.Fprintf(w, "   %s\n", preview(r.Content, 100))
		if len(r.Metadata) > 0 {
			fmt.Fprintf(w, "   %s\n", formatMetadata(r.Metadata))
		}
	}
}
