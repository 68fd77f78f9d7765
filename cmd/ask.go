package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/studyai/internal/chat"
	"github.com/fakeyudi/studyai/internal/classify"
	"github.com/fakeyudi/studyai/internal/session"
)

var (
	askName  string
	askLevel string
	askMode  string
	askSpeak bool
	askPlain bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		if askLevel != "" {
			if err := chat.ValidateLevel(askLevel); err != nil {
				return err
			}
		}
		if askMode != "" {
			if err := chat.ValidateMode(askMode); err != nil {
				return err
			}
		}
		if _, err := a.openSession(cmd.Context(), askName); err != nil {
			return err
		}

		p, ok := a.ctrl.Begin(strings.Join(args, " "))
		if !ok {
			return errors.New("question was not sent")
		}
		// --level and --mode apply to this question only.
		p.Override(askLevel, askMode)
		resp, err := a.ctrl.Fetch(cmd.Context(), p)
		a.ctrl.Complete(p, resp, err)
		if err != nil {
			return err
		}

		msgs := a.ctrl.Transcript()
		reply := msgs[len(msgs)-1]
		if reply.Role != session.RoleAssistant {
			return errors.New("no answer received")
		}

		theme, _, _ := a.ctrl.Preferences()
		printReply(cmd.OutOrStdout(), reply, theme, askPlain)

		if askSpeak && a.voice.Speak(reply.Content) {
			// Close waits for the utterance to finish.
			a.voice.Close()
		}
		return nil
	},
}

// printReply writes an assistant message as rendered markdown, or as a
// numbered quiz when the reply carries one.
func printReply(w io.Writer, m session.Message, theme string, plain bool) {
	switch c := classify.ClassifyTagged(m.Kind, m.Content).(type) {
	case classify.Quiz:
		printQuiz(w, c)
	case classify.Markdown:
		fmt.Fprintln(w, renderMarkdown(c.Text, theme, plain))
	}
	if len(m.Suggestions) > 0 {
		fmt.Fprintln(w, "Follow-up suggestions:")
		for _, s := range m.Suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
}

func printQuiz(w io.Writer, q classify.Quiz) {
	for i, item := range q.Items {
		fmt.Fprintf(w, "%d. %s\n", i+1, item.Question)
		for j, opt := range item.Options {
			fmt.Fprintf(w, "   %s) %s\n", classify.OptionLetter(j), opt)
		}
		fmt.Fprintln(w)
	}
}

func renderMarkdown(text, theme string, plain bool) string {
	if plain {
		return text
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(theme), glamour.WithWordWrap(80))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func init() {
	askCmd.Flags().StringVar(&askName, "name", "", "student name (defaults to the profile name)")
	askCmd.Flags().StringVar(&askLevel, "level", "", "student level for this question: beginner, intermediate or advanced")
	askCmd.Flags().StringVar(&askMode, "mode", "", "explanation mode for this question: quick, step-by-step, example-based or quiz")
	askCmd.Flags().BoolVar(&askSpeak, "speak", false, "read the answer aloud")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "print raw markdown")
	rootCmd.AddCommand(askCmd)
}
