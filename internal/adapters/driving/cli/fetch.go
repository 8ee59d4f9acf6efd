package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/core/services"
)

var fetchCategories []string

var fetchCmd = &cobra.Command{
	Use:   "fetch [query...]",
	Short: "Fetch and index papers from arXiv",
	Long: `Searches arXiv for each query (and each --category), downloads the
matching PDFs and indexes them without answering a question.

Each argument is one search query:
  paperchat fetch "retrieval augmented generation" "dense passage retrieval"`,
	Args: cobra.RangeArgs(1, 5),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringSliceVarP(&fetchCategories, "category", "c", nil, "arXiv category filter, e.g. cs.CL (repeatable)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	in := services.FetchPapersInput{Queries: args, Categories: fetchCategories}
	raw, invokeErr := rt.Tools.Invoke(cmd.Context(), services.ToolFetchPapers, in)
	out, ok := raw.(*services.FetchPapersOutput)
	if !ok || out == nil {
		if invokeErr != nil {
			return fmt.Errorf("fetch failed: %w", invokeErr)
		}
		return fmt.Errorf("fetch failed: unexpected tool output %T", raw)
	}

	w := cmd.OutOrStdout()
	if len(out.Found) == 0 {
		fmt.Fprintln(w, "No papers found.")
	} else {
		fmt.Fprintf(w, "Found %d papers\n", len(out.Found))
	}
	if out.Failed > 0 {
		fmt.Fprintf(w, "Failed downloads: %d\n", out.Failed)
	}
	writeReport(w, out.Report)

	if invokeErr != nil {
		return fmt.Errorf("indexing failed: %w", invokeErr)
	}
	return nil
}
