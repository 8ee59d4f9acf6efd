package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Settings live in config.toml under the data directory. Environment
variables OPENAI_API_KEY, ANTHROPIC_API_KEY and GEMINI_API_KEY override the
stored keys.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings and collection statistics",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	values := svc.Values()
	keys := make([]string, 0, len(values))
	width := 0
	for k := range values {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "Home: %s\n\n", opts.Home)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-*s = %s\n", width, k, values[k])
	}
	if _, err := svc.Get(); err != nil {
		fmt.Fprintf(w, "\nWarning: %v\n", err)
	}

	fmt.Fprintln(w)
	stats, err := factory.Stats(cmd.Context(), opts)
	if err != nil {
		fmt.Fprintf(w, "Collections: unavailable (%v)\n", err)
		return nil
	}
	if len(stats) == 0 {
		fmt.Fprintln(w, "Collections: none")
		return nil
	}
	fmt.Fprintln(w, "Collections:")
	for _, s := range stats {
		fmt.Fprintf(w, "  %s: %d documents, %d chunks, %d dimensions\n", s.Name, s.Documents, s.Records, s.Dimensions)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	if err := svc.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("setting %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
	return nil
}
