package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// turnOutput is the --json shape of a turn.
type turnOutput struct {
	domain.AnswerResult
	TurnID string `json:"turn_id,omitempty"`
	Route  string `json:"route,omitempty"`
}

func newTurnOutput(result *domain.AnswerResult, trace *domain.TurnTrace) turnOutput {
	out := turnOutput{AnswerResult: *result}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if trace != nil {
		out.TurnID = trace.ID
		out.Route = string(trace.Route)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeAnswer(w io.Writer, result *domain.AnswerResult) {
	fmt.Fprintln(w, strings.TrimSpace(result.Answer))
	if len(result.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for _, src := range result.Sources {
			fmt.Fprintf(w, "  - %s\n", src)
		}
	}
}

func writeReport(w io.Writer, report *domain.IngestReport) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Indexed %d documents (%d chunks)\n", len(report.Documents), report.Chunks)
	for _, title := range report.Titles {
		fmt.Fprintf(w, "  - %s\n", title)
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d:\n", len(report.Skipped))
		for _, s := range report.Skipped {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if report.CleanupFailures > 0 {
		fmt.Fprintf(w, "Warning: %d staged files could not be removed\n", report.CleanupFailures)
	}
}

// describeTrace renders the turn path for verbose output, e.g.
// "start -> classified -> fetched -> answered -> done".
func describeTrace(trace *domain.TurnTrace) string {
	if trace == nil {
		return ""
	}
	states := make([]string, len(trace.States))
	for i, s := range trace.States {
		states[i] = string(s)
	}
	return strings.Join(states, " -> ")
}
