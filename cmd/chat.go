package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/studyai/internal/session"
	"github.com/fakeyudi/studyai/internal/tui"
)

var chatName string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat screen (default)",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	a := current
	name := chatName
	if name == "" && a.profile != nil {
		name = a.profile.Name
	}

	// Pick up history written by another studyai instance while we run.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		err := session.Watch(ctx, a.store, a.relay.HistoryChanged)
		if err != nil && !errors.Is(err, session.ErrWatchUnsupported) {
			a.logger.Warn("history watch stopped", zap.Error(err))
		}
	}()

	a.screen.Store(true)
	defer a.screen.Store(false)
	return tui.Run(a.ctrl, a.voice, a.relay, tui.Options{
		StudentName: name,
		ExportDir:   a.cfg.ExportDir,
		Format:      a.cfg.DefaultFormat,
		Timeout:     a.cfg.Timeout(),
	})
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, chatCmd} {
		c.Flags().StringVar(&chatName, "name", "", "student name for the new session (defaults to the profile name)")
	}
	rootCmd.AddCommand(chatCmd)
}
