package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Opens an interactive chat. On a terminal this is a full-screen UI;
otherwise, or with --plain, a line-oriented prompt reads one question per line.

The conversation is kept in memory only. In line mode, /reset clears it and
/exit quits.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use the line prompt even on a terminal")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !chatPlain && isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		app, err := tui.NewApp(&tui.Ports{Chat: rt.Chat, Settings: rt.SettingsService})
		if err != nil {
			return err
		}
		return app.WithContext(cmd.Context()).Run()
	}
	return runREPL(cmd.Context(), rt.Chat, cmd.InOrStdin(), cmd.OutOrStdout())
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// runREPL reads one question per line and answers it against the running
// transcript. A failed turn leaves the transcript as it was before it.
func runREPL(ctx context.Context, chat driving.ChatService, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var transcript []domain.ChatMessage
	prompt := func() { fmt.Fprint(out, "> ") }

	prompt()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			prompt()
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			transcript = nil
			fmt.Fprintln(out, "Conversation cleared.")
			prompt()
			continue
		}

		transcript = append(transcript, domain.ChatMessage{Role: domain.RoleUser, Content: line})
		result, err := chat.Respond(ctx, transcript)
		if err != nil {
			transcript = transcript[:len(transcript)-1]
			fmt.Fprintf(out, "Error: %v\n", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			prompt()
			continue
		}
		transcript = append(transcript, domain.ChatMessage{Role: domain.RoleAssistant, Content: result.Answer})

		writeAnswer(out, result)
		fmt.Fprintln(out)
		prompt()
	}
	return scanner.Err()
}
