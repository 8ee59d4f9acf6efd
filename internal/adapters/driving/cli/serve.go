package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

const maxChatRequestBytes = 1 << 20

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API over HTTP",
	Long: `Starts an HTTP server exposing the turn pipeline.

Endpoints:
  POST /v1/chat   {"messages": [{"role": "user", "content": "..."}]}
                  returns {"answer", "sources", "tool_used", "rationale", "turn_id", "route"}
  GET  /healthz   returns 200 when the server is up`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           newChatHandler(rt.Chat),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-cmd.Context().Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx) //nolint:errcheck
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Chat API listening on %s\n", serveAddr)
	err = httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newChatHandler(chat driving.ChatService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeHTTPJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatRequestBytes))
		if err := dec.Decode(&req); err != nil {
			writeHTTPJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}

		result, trace, err := chat.RespondWithTrace(r.Context(), req.Messages)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrInvalidInput) {
				status = http.StatusBadRequest
			}
			logger.Warn("chat request failed: %v", err)
			writeHTTPJSON(w, status, errorResponse{Error: err.Error()})
			return
		}

		writeHTTPJSON(w, http.StatusOK, newTurnOutput(result, trace))
	})

	return mux
}

func writeHTTPJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response: %v", err)
	}
}
