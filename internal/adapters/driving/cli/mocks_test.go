package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/spf13/cobra"
)

type mockChatService struct {
	result      *domain.AnswerResult
	trace       *domain.TurnTrace
	err         error
	respond     func(transcript []domain.ChatMessage) (*domain.AnswerResult, error)
	transcripts [][]domain.ChatMessage
}

func (m *mockChatService) Respond(ctx context.Context, transcript []domain.ChatMessage) (*domain.AnswerResult, error) {
	result, _, err := m.RespondWithTrace(ctx, transcript)
	return result, err
}

func (m *mockChatService) RespondWithTrace(
	_ context.Context, transcript []domain.ChatMessage,
) (*domain.AnswerResult, *domain.TurnTrace, error) {
	m.transcripts = append(m.transcripts, slices.Clone(transcript))
	if m.respond != nil {
		result, err := m.respond(transcript)
		return result, m.trace, err
	}
	return m.result, m.trace, m.err
}

type toolCall struct {
	name string
	args any
}

type mockToolRegistry struct {
	invoke func(name string, args any) (any, error)
	calls  []toolCall
}

func (m *mockToolRegistry) Register(_ driving.Tool) error { return nil }

func (m *mockToolRegistry) Lookup(_ string) (driving.Tool, error) {
	return nil, domain.ErrUnknownTool
}

func (m *mockToolRegistry) Invoke(_ context.Context, name string, args any) (any, error) {
	m.calls = append(m.calls, toolCall{name: name, args: args})
	if m.invoke == nil {
		return nil, errors.New("not implemented")
	}
	return m.invoke(name, args)
}

func (m *mockToolRegistry) List() []driving.Tool { return nil }

type mockIngestor struct {
	mu     sync.Mutex
	report *domain.IngestReport
	err    error
	calls  [][]string
}

func (m *mockIngestor) Ingest(_ context.Context, _ []domain.StagedArtifact) (*domain.IngestReport, error) {
	return m.report, m.err
}

func (m *mockIngestor) IngestFiles(_ context.Context, paths []string) (*domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, slices.Clone(paths))
	return m.report, m.err
}

func (m *mockIngestor) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

type mockSettingsService struct {
	values map[string]string
	getErr error
	setErr error
	sets   map[string]string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	settings := domain.DefaultAppSettings("/tmp/paperchat")
	return &settings, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.sets == nil {
		m.sets = make(map[string]string)
	}
	m.sets[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockSettingsService) Values() map[string]string { return m.values }

type mockFactory struct {
	runtime     *Runtime
	runtimeErr  error
	settings    driving.SettingsService
	settingsErr error
	stats       []domain.CollectionStats
	statsErr    error

	runtimeCalls int
	lastOpts     Options
}

func (f *mockFactory) Settings(opts Options) (driving.SettingsService, error) {
	f.lastOpts = opts
	return f.settings, f.settingsErr
}

func (f *mockFactory) Runtime(_ context.Context, opts Options) (*Runtime, error) {
	f.runtimeCalls++
	f.lastOpts = opts
	if f.runtimeErr != nil {
		return nil, f.runtimeErr
	}
	return f.runtime, nil
}

func (f *mockFactory) Stats(_ context.Context, _ Options) ([]domain.CollectionStats, error) {
	return f.stats, f.statsErr
}

// setupTestFactory installs f and resets every flag variable for the test.
func setupTestFactory(t *testing.T, f Factory) {
	t.Helper()
	oldFactory := factory
	factory = f
	resetFlags()
	t.Cleanup(func() {
		factory = oldFactory
		resetFlags()
	})
}

func resetFlags() {
	opts = Options{}
	askHistoryFile = ""
	askJSON = false
	chatPlain = false
	fetchCategories = nil
	ingestWatch = ""
	serveAddr = ":8080"
}

// executeCommand runs the root command with args, feeding stdin, and returns
// everything written to stdout and stderr.
func executeCommand(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	setCommandContext(rootCmd, ctx)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// setCommandContext gives every command ctx, since cobra keeps a
// subcommand's context from an earlier Execute.
func setCommandContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, child := range cmd.Commands() {
		setCommandContext(child, ctx)
	}
}

func newRuntime(chat driving.ChatService, tools driving.ToolRegistry, ingestor driving.Ingestor) (*Runtime, *bool) {
	closed := false
	settings := domain.DefaultAppSettings("/tmp/paperchat")
	return &Runtime{
		Settings:   &settings,
		Chat:       chat,
		Tools:      tools,
		Ingestor:   ingestor,
		Extensions: []string{".pdf", ".txt"},
		OnClose:    func() { closed = true },
	}, &closed
}

func decodeJSON(t *testing.T, r io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}
