package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/studyai/internal/chat"
	"github.com/fakeyudi/studyai/internal/export"
	"github.com/fakeyudi/studyai/internal/session"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, inspect and manage stored chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListCmd.RunE(cmd, args)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := current.ctrl.Entries()
		if len(entries) == 0 {
			cmd.Println("no stored sessions")
			return nil
		}
		for _, e := range entries {
			cmd.Printf("%-12s  %s  %3d msgs  %s\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Messages, e.Title)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a stored transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, ok := current.ctrl.Entry(args[0])
		if !ok {
			return fmt.Errorf("no stored session %q", args[0])
		}
		theme, _, _ := current.ctrl.Preferences()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "# %s\n\n", e.Title)
		for _, m := range e.Messages {
			if m.Role == session.RoleUser {
				fmt.Fprintf(w, "You: %s\n\n", m.Content)
				continue
			}
			printReply(w, m, theme, historyPlain)
			fmt.Fprintln(w)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete one stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := current.ctrl.Entry(args[0]); !ok {
			return fmt.Errorf("no stored session %q", args[0])
		}
		current.ctrl.Delete(args[0])
		cmd.Printf("deleted %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm := chat.Always
		if !clearYes {
			confirm = promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
		}
		if err := current.ctrl.ClearAll(confirm); err != nil {
			if errors.Is(err, chat.ErrNotConfirmed) {
				cmd.Println("cancelled")
				return nil
			}
			return err
		}
		cmd.Println("history cleared")
		return nil
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an exported transcript (.md, .json or .yaml) as a new session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}
		parser, err := export.ParserFor(path)
		if err != nil {
			return err
		}
		doc, err := parser.Parse(data)
		if err != nil {
			return err
		}
		id := current.ctrl.Import(doc.Transcript())
		cmd.Printf("imported %d exchanges as %s\n", len(doc.Items), id)
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Write a stored transcript to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, ok := current.ctrl.Entry(args[0])
		if !ok {
			return fmt.Errorf("no stored session %q", args[0])
		}
		format := exportFormat
		if format == "" {
			format = current.cfg.DefaultFormat
		}
		r, err := export.ForFormat(format)
		if err != nil {
			return err
		}
		dir := exportDir
		if dir == "" {
			dir = current.cfg.ExportDir
		}
		path, err := export.Write(dir, export.FromTranscript(args[0], e, time.Now()), r)
		if err != nil {
			return err
		}
		cmd.Printf("saved %s\n", path)
		return nil
	},
}

// promptConfirm asks on out and reads y/N from in.
func promptConfirm(in io.Reader, out io.Writer) chat.Confirmer {
	return chat.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, _ := bufio.NewReader(in).ReadString('\n')
		ans := strings.ToLower(strings.TrimSpace(line))
		return ans == "y" || ans == "yes"
	})
}

var (
	clearYes     bool
	historyPlain bool
	exportFormat string
	exportDir    string
)

func init() {
	historyClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	historyShowCmd.Flags().BoolVar(&historyPlain, "plain", false, "print raw markdown")
	historyExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "markdown, json, yaml or doc (defaults to default_format)")
	historyExportCmd.Flags().StringVarP(&exportDir, "out", "o", "", "output directory (defaults to export_dir)")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyClearCmd, historyImportCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
