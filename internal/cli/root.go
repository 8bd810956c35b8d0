package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/skinwise/internal/backend"
	"github.com/example/skinwise/internal/config"
	"github.com/example/skinwise/internal/logging"
	"github.com/example/skinwise/internal/session"
)

// Slot scopes inside the state file.
const (
	deviceScope   = "device"
	terminalScope = "terminal"
)

var (
	statePath string
	verbose   bool
	rootCmd   *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "skinctl",
		Short: "skinctl - Skinwise dashboard from the terminal",
		Long: `skinctl logs in with a WhatsApp one-time code and checks where the
Skinwise dashboard would send you: onboarding, the dashboard, or back to login.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "Path to the state file (default ~/.config/skinwise/state.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(logoutCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// env is what every command that talks to the backend needs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	client *backend.Client
	store  *session.Store
}

func openEnv() (*env, error) {
	cfg := config.LoadClient()

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	path := statePath
	if path == "" {
		if path, err = session.DefaultStatePath(); err != nil {
			return nil, err
		}
	}
	files := session.NewFileBackend(path)

	return &env{
		cfg:    cfg,
		logger: logger,
		client: backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, logger.Named("backend")),
		store:  session.NewStore(files.Scope(deviceScope), files.Scope(terminalScope), logger),
	}, nil
}

func (e *env) close() {
	_ = e.logger.Sync()
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
