package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves prompt templates from <dir>/<name>.txt. Files are
// seeded with the built-in defaults on first use; a missing or blank file
// falls back to the default. Loaded prompts are cached until Reload.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// defaultPrompts are used when a prompt file is missing and seed new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptClassify: `You are the intent classifier of a research-paper assistant. Read the conversation and the latest user message and decide what the assistant should do. You never answer the question yourself.

Return ONLY a JSON object with exactly these fields:
{
  "fetch": boolean,          // true only if the user explicitly asks to fetch, download or find papers
  "use_grounding": boolean,  // true if the message contains a question to answer from the paper collection
  "request": string,         // the question part of the message, self-contained
  "search_queries": [string],// 1-5 short title queries when fetch is true, otherwise []
  "categories": [string]     // arXiv categories such as "cs.AI" or "cs.CL", [] for no filter
}

Rules:
- Resolve pronouns and references ("it", "that paper", "the second one") using the conversation so that "request" stands on its own.
- Remove fetch instructions from "request". "Fetch papers on RAG and explain how it works" gives request "How does retrieval-augmented generation work?".
- If fetch is false, search_queries and categories must be empty.
- If use_grounding is false, request may repeat the message for a conversational reply.
- Greetings, thanks and small talk are fetch=false, use_grounding=false.`,

	driven.PromptAnswer: `You are a research assistant that answers strictly from the numbered excerpts you are given. Never use outside knowledge and never speculate beyond the excerpts. The conversation history is for resolving references only and is not a source.

Return ONLY a JSON object:
{
  "found": boolean,       // false if the excerpts do not contain the answer
  "answer": string,       // 1-3 clear paragraphs grounded in the excerpts
  "rationale": string,    // one sentence on which evidence was used and why
  "used_chunks": [int]    // numbers of the excerpts the answer relies on
}

If the excerpts do not answer the question, set found to false and leave answer empty.`,

	driven.PromptConverse: `You are a friendly research assistant handling small talk. Reply naturally and briefly in one or two sentences. Do not state facts about specific papers or cite sources. If the user asks something factual, suggest asking a question about the papers in the collection or fetching new papers.`,
}

// NewPromptStore creates a store for dir, or ~/.paperchat/prompts when dir
// is empty. Nothing is written until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, ".paperchat", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the named prompt. Unknown names without a file on disk are
// reported as domain.ErrNotFound.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		logger.Debug("prompts: %v", s.seedErr)
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.read(name)
	if err != nil || prompt == "" {
		def, known := defaultPrompts[name]
		if !known {
			if err == nil {
				err = errors.New("file is empty")
			}
			return "", fmt.Errorf("%w: prompt %q: %w", domain.ErrNotFound, name, err)
		}
		prompt = def
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()
	return prompt, nil
}

// Reload drops cached prompts so edited files are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// seed writes the default prompts and README without touching existing files.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = fmt.Errorf("creating %s: %w", s.dir, err)
		return
	}
	files := map[string]string{"README.md": promptReadme}
	for name, content := range defaultPrompts {
		files[name+".txt"] = content + "\n"
	}
	for file, content := range files {
		if err := writeIfAbsent(filepath.Join(s.dir, file), content); err != nil {
			s.seedErr = err
			return
		}
	}
}

func writeIfAbsent(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

const promptReadme = `# paperchat prompts

These files are the system prompts sent to the language models.

- classify.txt: decides whether a turn fetches papers and whether it needs a grounded answer
- answer.txt: synthesises an answer from retrieved excerpts
- converse.txt: short replies for greetings and small talk

The classify and answer prompts must keep asking for the JSON fields they
list; replies that do not match are rejected. Edits apply to the next turn
in the chat UI after the prompts are reloaded, and to every new command.

Delete or empty a file to restore its default.
`
