package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"assistant-dashboard/internal/api"
	"assistant-dashboard/internal/config"
	"assistant-dashboard/internal/logging"
	"assistant-dashboard/internal/nav"
	"assistant-dashboard/internal/session"
	"assistant-dashboard/internal/storage"
	"assistant-dashboard/internal/tui"
)

// app holds what every command needs; PersistentPreRunE fills it in.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *session.Store
	client   *api.Client
	recorder storage.Recorder
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var verbose bool

	root := &cobra.Command{
		Use:   "dashboard",
		Short: "Terminal client for the AI assistant",
		Long: `dashboard talks to the AI assistant backend: sign up, log in, chat and
browse the history of your prompts.

Run without arguments to start the interactive interface.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.signupCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.askCmd(),
		a.historyCmd(),
		a.statusCmd(),
		a.exchangesCmd(),
	)
	return root
}

func (a *app) init(verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFilePath)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	repo, err := session.NewFileRepository(cfg.SessionFilePath)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.store = session.NewStore(repo, session.WithLogger(logger))
	a.client = api.New(cfg.BackendURL, cfg.RequestTimeout, api.WithLogger(logger))
	if cfg.ExchangeLogPath != "" {
		rec, err := storage.NewFileRecorder(cfg.ExchangeLogPath)
		if err != nil {
			logger.Warn("exchange archive disabled", zap.Error(err))
		} else {
			a.recorder = rec
		}
	}
	return nil
}

func (a *app) runInteractive() error {
	start := nav.Home
	if _, ok := a.store.Get(); ok && !a.store.Expired(time.Now()) {
		start = nav.Dashboard
	}
	model := tui.New(tui.Config{
		Backend:       a.client,
		Session:       a.store,
		Logger:        a.logger,
		RedirectDelay: a.cfg.SignupRedirectDelay,
		Recorder:      a.recorder,
		SyncSchedule:  a.cfg.HistorySyncSchedule,
		Start:         start,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(tui.Model); ok {
		m.Shutdown()
	}
	if err != nil {
		return fmt.Errorf("interactive session failed: %w", err)
	}
	return nil
}
