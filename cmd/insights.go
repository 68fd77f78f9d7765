package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/studyai/internal/backend"
)

var insightsGlobal bool

var insightsCmd = &cobra.Command{
	Use:   "insights [session-id]",
	Short: "Show learning analytics for a session, or across all sessions with --global",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout())
		defer cancel()

		if insightsGlobal {
			g, err := a.client.GlobalInsights(ctx)
			if err != nil {
				return err
			}
			cmd.Println("## Frequent topics")
			printTopics(cmd, g.FrequentTopics)
			return nil
		}

		if len(args) == 0 {
			return errors.New("a session id is required unless --global is set")
		}
		in, err := a.client.Insights(ctx, args[0])
		if err != nil {
			return err
		}

		cmd.Printf("Questions asked: %d\n\n", in.TotalQuestions)
		cmd.Println("## Frequently asked")
		printTopics(cmd, in.FrequentlyAsked)
		cmd.Println()

		cmd.Println("## Subjects covered")
		if len(in.SubjectsCovered) == 0 {
			cmd.Println("  (none)")
		}
		for _, s := range in.SubjectsCovered {
			cmd.Printf("  %s\n", s)
		}
		cmd.Println()

		cmd.Println("## Confusion areas")
		if len(in.ConfusionAreas) == 0 {
			cmd.Println("  (none)")
		}
		for _, c := range in.ConfusionAreas {
			cmd.Printf("  %s  avg %.1f over %d reports\n", c.Topic, c.AvgConfusion, c.Reports)
		}
		cmd.Println()

		cmd.Println("## Learning history")
		if len(in.LearningHistory) == 0 {
			cmd.Println("  (none)")
		}
		for i, t := range in.LearningHistory {
			cmd.Printf("  %d. %s\n", i+1, t.Question)
		}
		return nil
	},
}

func printTopics(cmd *cobra.Command, topics []backend.TopicCount) {
	if len(topics) == 0 {
		cmd.Println("  (none)")
		return
	}
	for _, t := range topics {
		cmd.Printf("  %-30s %d\n", t.Topic, t.Count)
	}
}

var confusionLevel int

var confusionCmd = &cobra.Command{
	Use:   "confusion <session-id> <topic>",
	Short: "Report how confusing a topic was (1-5)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if confusionLevel < 1 || confusionLevel > 5 {
			return fmt.Errorf("confusion level must be between 1 and 5, got %d", confusionLevel)
		}
		a := current
		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout())
		defer cancel()
		err := a.client.ReportConfusion(ctx, backend.ConfusionRequest{
			SessionID:      args[0],
			Topic:          args[1],
			ConfusionLevel: confusionLevel,
		})
		if err != nil {
			return err
		}
		cmd.Println("thanks, noted")
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout())
		defer cancel()
		if err := a.client.Health(ctx); err != nil {
			return err
		}
		cmd.Printf("backend at %s is healthy\n", a.cfg.BackendURL)
		return nil
	},
}

func init() {
	insightsCmd.Flags().BoolVar(&insightsGlobal, "global", false, "show topics across all sessions")
	confusionCmd.Flags().IntVarP(&confusionLevel, "level", "l", 3, "confusion level from 1 (clear) to 5 (lost)")
	rootCmd.AddCommand(insightsCmd, confusionCmd, healthCmd)
}
