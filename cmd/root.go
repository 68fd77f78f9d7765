package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/studyai/internal/backend"
	"github.com/fakeyudi/studyai/internal/chat"
	"github.com/fakeyudi/studyai/internal/config"
	"github.com/fakeyudi/studyai/internal/logging"
	"github.com/fakeyudi/studyai/internal/profile"
	"github.com/fakeyudi/studyai/internal/session"
	"github.com/fakeyudi/studyai/internal/tui"
	"github.com/fakeyudi/studyai/internal/voice"
)

// app holds everything a command needs. It is built once per invocation in
// PersistentPreRunE and torn down in PersistentPostRunE.
type app struct {
	cfg     config.Config
	profile *profile.Profile // nil until setup has run
	logger  *zap.Logger
	store   session.Store
	client  *backend.Client
	ctrl    *chat.Controller
	voice   *voice.Coordinator
	relay   *tui.Relay

	// screen is set while the chat screen owns the terminal; notices then
	// go only to the screen.
	screen atomic.Bool
}

var current *app

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "studyai",
	Short:         "Ask questions about your syllabus from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() && term.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to studyai! Looks like this is your first time.")
			if err := runSetup(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
		}

		a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current != nil {
			current.close()
			current = nil
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// newApp wires configuration, storage, the backend client and the
// controller together. Notices raised outside the chat screen are written
// to notices.
func newApp(ctx context.Context, notices io.Writer) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, relay: &tui.Relay{}}

	if profile.Exists() {
		p, err := profile.Load()
		if err != nil {
			return nil, fmt.Errorf("loading profile: %w", err)
		}
		a.profile = p
	}

	switch cfg.HistoryBackend {
	case config.HistoryRedis:
		a.store, err = session.NewRedisStore(session.RedisConfig{Addr: cfg.RedisAddr, Prefix: cfg.RedisPrefix})
	case config.HistoryFile, "":
		a.store, err = session.NewDiskStore()
	default:
		err = fmt.Errorf("unknown history_backend %q", cfg.HistoryBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	var level string
	if a.profile != nil {
		level = a.profile.Level
	}
	st, err := session.LoadOrDefault(ctx, a.store, level)
	if err != nil {
		// A corrupt bucket must not lock the user out; start empty.
		logger.Warn("history unreadable, starting empty", zap.Error(err))
		st = session.DefaultState()
	}

	a.client = backend.NewClient(cfg.BackendURL,
		backend.WithTimeout(cfg.Timeout()),
		backend.WithLogger(logger.Named("backend")))

	opts := []chat.Option{
		chat.WithLogger(logger.Named("chat")),
		chat.WithNotifier(func(n chat.Notice) {
			a.relay.Notify(n)
			if n.Level == chat.NoticeError && !a.screen.Load() {
				fmt.Fprintln(notices, n.Text)
			}
		}),
	}
	if a.profile != nil {
		opts = append(opts, chat.WithSubject(a.profile.Subject))
	}
	a.ctrl = chat.New(a.client, st, opts...)
	a.ctrl.Subscribe(session.NewPersister(a.store, logger.Named("history")).Observe)

	vopts := []voice.Option{voice.WithLogger(logger.Named("voice")), voice.WithLocale(cfg.Locale)}
	if synth, err := voice.NewCommandSynthesizer(cfg.SpeechCommand); err == nil {
		vopts = append(vopts, voice.WithSynthesizer(synth))
	} else {
		logger.Debug("speech output unavailable", zap.Error(err))
	}
	a.voice = voice.New(vopts...)
	if a.profile != nil {
		a.voice.SetAutoSpeak(a.profile.AutoSpeak)
	}
	return a, nil
}

func (a *app) close() {
	a.voice.Close()
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("closing history store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// studentName is the name used when a command needs to open a session.
func (a *app) studentName(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.profile != nil && a.profile.Name != "" {
		return a.profile.Name, nil
	}
	return "", errors.New("no student name: run 'studyai setup' or pass --name")
}

// openSession creates a backend session for one-shot commands.
func (a *app) openSession(ctx context.Context, nameFlag string) (session.Session, error) {
	name, err := a.studentName(nameFlag)
	if err != nil {
		return session.Session{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout())
	defer cancel()
	return a.ctrl.CreateSession(ctx, name)
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when a command fails.
	if current != nil {
		current.close()
		current = nil
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}
