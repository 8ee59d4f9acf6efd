package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/connectors/filesystem"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/services"
)

var ingestWatch string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Index local documents",
	Long: `Extracts, chunks and embeds local PDF, HTML and text files into the
collection. Files are left in place.

With --watch, every supported file already in the directory is indexed and
the directory is then watched; new or rewritten files are indexed once they
stop changing. Press Ctrl+C to stop.`,
	Args: func(_ *cobra.Command, args []string) error {
		if ingestWatch == "" && len(args) == 0 {
			return errors.New("requires at least one file or --watch <dir>")
		}
		if ingestWatch != "" && len(args) > 0 {
			return errors.New("files cannot be combined with --watch")
		}
		return nil
	},
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestWatch, "watch", "w", "", "directory to index and keep watching")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if ingestWatch != "" {
		return watchDirectory(cmd, rt, ingestWatch)
	}

	report, err := rt.Ingestor.IngestFiles(cmd.Context(), args)
	writeReport(cmd.OutOrStdout(), report)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

func watchDirectory(cmd *cobra.Command, rt *Runtime, dir string) error {
	ctx := cmd.Context()
	out := &syncWriter{w: cmd.OutOrStdout()}
	watcher := filesystem.New(dir, rt.Extensions)

	existing, err := watcher.Scan()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		report, err := rt.Ingestor.IngestFiles(ctx, existing)
		writeReport(out, report)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}

	events, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %s for %s files\n", watcher.Root(), strings.Join(rt.Extensions, ", "))

	loop := services.NewWatchIngestor(rt.Ingestor, services.DefaultSettleInterval, func(paths []string, report *domain.IngestReport, err error) {
		writeReport(out, report)
		if err != nil {
			fmt.Fprintf(out, "Error: %d files: %v\n", len(paths), err)
		}
	})
	if err := loop.Run(ctx, events); err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}
	return nil
}

// syncWriter serialises writes from the watch loop and the command.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
