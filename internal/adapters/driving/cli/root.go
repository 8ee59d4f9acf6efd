// Package cli provides the paperchat command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// HomeEnv overrides the default data directory.
const HomeEnv = "PAPERCHAT_HOME"

var errNoFactory = errors.New("paperchat is not configured: no service factory")

// Options are the global flags shared by every command.
type Options struct {
	// Home is the directory holding config.toml, prompts and the vector store.
	Home string

	// Ephemeral keeps the vector collection in memory for this process only.
	Ephemeral bool

	// Verbose enables debug logging.
	Verbose bool
}

// Runtime is the set of services a command needs for one invocation.
type Runtime struct {
	Settings        *domain.AppSettings
	SettingsService driving.SettingsService
	Chat            driving.ChatService
	Tools           driving.ToolRegistry
	Ingestor        driving.Ingestor

	// Extensions are the file types the ingest pipeline can extract.
	Extensions []string

	// OnClose releases stores and provider clients.
	OnClose func()
}

// Close releases everything the runtime holds. Safe on a nil Runtime.
func (r *Runtime) Close() {
	if r == nil || r.OnClose == nil {
		return
	}
	r.OnClose()
	r.OnClose = nil
}

// Factory builds services on demand so that commands like version and
// config never open stores or contact providers.
type Factory interface {
	// Settings returns the settings service for opts.Home.
	Settings(opts Options) (driving.SettingsService, error)

	// Runtime wires the full turn pipeline.
	Runtime(ctx context.Context, opts Options) (*Runtime, error)

	// Stats reports vector collection statistics without contacting providers.
	Stats(ctx context.Context, opts Options) ([]domain.CollectionStats, error)
}

var (
	version = "dev"
	opts    Options
	factory Factory
)

var rootCmd = &cobra.Command{
	Use:   "paperchat",
	Short: "Chat with research papers",
	Long: `paperchat answers questions about research papers.

Each turn is classified first. When the question needs papers that are not
yet in the local collection, paperchat searches arXiv, downloads the PDFs,
indexes them and answers from the retrieved passages with citations.
Small talk and follow-ups are answered conversationally.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(opts.Verbose)
		home, err := resolveHome(opts.Home)
		if err != nil {
			return err
		}
		opts.Home = home
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.Home, "home", "", "data directory (default $"+HomeEnv+" or ~/.paperchat)")
	flags.BoolVar(&opts.Ephemeral, "ephemeral", false, "keep the vector store in memory")
}

// SetFactory installs the service factory. Called once from main.
func SetFactory(f Factory) {
	factory = f
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func resolveHome(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(userHome, ".paperchat"), nil
}

func openRuntime(cmd *cobra.Command) (*Runtime, error) {
	if factory == nil {
		return nil, errNoFactory
	}
	rt, err := factory.Runtime(cmd.Context(), opts)
	if err != nil {
		return nil, fmt.Errorf("starting services: %w", err)
	}
	return rt, nil
}

func settingsService() (driving.SettingsService, error) {
	if factory == nil {
		return nil, errNoFactory
	}
	return factory.Settings(opts)
}
