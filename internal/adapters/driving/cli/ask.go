package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/logger"
)

var (
	askHistoryFile string
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Long: `Runs one turn: classify, optionally fetch papers from arXiv, then answer.

Prior conversation can be supplied with --history as a JSON array of
{"role": "user"|"assistant", "content": "..."} messages.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askHistoryFile, "history", "", "JSON file with prior messages")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	history, err := readHistory(askHistoryFile)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	transcript := append(history, domain.ChatMessage{Role: domain.RoleUser, Content: question})
	result, trace, err := rt.Chat.RespondWithTrace(cmd.Context(), transcript)
	if err != nil {
		return fmt.Errorf("turn failed: %w", err)
	}
	if trace != nil {
		logger.Debug("turn %s: %s", trace.ID, describeTrace(trace))
	}

	if askJSON {
		return writeJSON(cmd.OutOrStdout(), newTurnOutput(result, trace))
	}
	writeAnswer(cmd.OutOrStdout(), result)
	return nil
}

// readHistory loads a transcript file. An empty path means no history.
func readHistory(path string) ([]domain.ChatMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var history []domain.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%w: history is not a JSON message array: %w", domain.ErrInvalidInput, err)
	}
	for i, msg := range history {
		if !msg.Role.IsValid() {
			return nil, fmt.Errorf("%w: history message %d has unknown role %q", domain.ErrInvalidInput, i, msg.Role)
		}
	}
	return history, nil
}
