package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/studyai/internal/backend"
	"github.com/fakeyudi/studyai/internal/classify"
)

var (
	quizName  string
	quizCount int
)

var quizCmd = &cobra.Command{
	Use:   "quiz <topic>",
	Short: "Generate a multiple-choice quiz on a topic and take it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		s, err := a.openSession(cmd.Context(), quizName)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout())
		defer cancel()
		resp, err := a.client.GenerateQuiz(ctx, backend.QuizRequest{
			SessionID:    s.ID,
			Topic:        strings.Join(args, " "),
			NumQuestions: quizCount,
		})
		if err != nil {
			return err
		}
		q := resp.Quiz()
		if len(q.Items) == 0 {
			return errors.New("the backend returned an empty quiz")
		}
		if resp.Title != "" {
			cmd.Printf("%s\n\n", resp.Title)
		}
		return takeQuiz(cmd.InOrStdin(), cmd.OutOrStdout(), classify.NewAttempt(q))
	},
}

// takeQuiz asks each question in turn, then prints the marked answers and
// the score.
func takeQuiz(in io.Reader, out io.Writer, at *classify.Attempt) error {
	r := bufio.NewReader(in)
	items := at.Quiz().Items
	for i, item := range items {
		fmt.Fprintf(out, "%d. %s\n", i+1, item.Question)
		for j, opt := range item.Options {
			fmt.Fprintf(out, "   %s) %s\n", classify.OptionLetter(j), opt)
		}
		for {
			fmt.Fprintf(out, "Your answer: ")
			line, err := r.ReadString('\n')
			if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
				return fmt.Errorf("quiz abandoned: %w", err)
			}
			opt, ok := parseOption(line)
			if ok && at.Select(i, opt) == nil {
				break
			}
			fmt.Fprintf(out, "  Please answer with a letter between A and %s\n", classify.OptionLetter(len(item.Options)-1))
		}
		fmt.Fprintln(out)
	}

	if err := at.Submit(); err != nil {
		return err
	}

	for i, item := range items {
		sel, _ := at.Selected(i)
		mark := "✗"
		if sel == item.Answer {
			mark = "✓"
		}
		fmt.Fprintf(out, "%s %d. you chose %s", mark, i+1, classify.OptionLetter(sel))
		if sel != item.Answer && item.Answer >= 0 {
			fmt.Fprintf(out, ", correct is %s", classify.OptionLetter(item.Answer))
		}
		fmt.Fprintln(out)
		if item.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", item.Explanation)
		}
	}
	fmt.Fprintf(out, "\nScore: %d/%d\n", at.Score(), len(items))
	return nil
}

// parseOption accepts a letter (a, B) or a 1-based number.
func parseOption(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n - 1, n > 0
	}
	if len(s) != 1 {
		return 0, false
	}
	c := strings.ToUpper(s)[0]
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return int(c - 'A'), true
}

func init() {
	quizCmd.Flags().StringVar(&quizName, "name", "", "student name (defaults to the profile name)")
	quizCmd.Flags().IntVarP(&quizCount, "count", "n", 5, "number of questions")
	rootCmd.AddCommand(quizCmd)
}
