package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/empathy"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/reply"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chattester",
		Short:         "Exercise the Sky Inn responder from the terminal",
		SilenceUsage:  true,
	}
	root.AddCommand(newClassifyCmd(), newEmpathyCmd(), newReplyCmd(), newChatCmd())
	return root
}

// newClassifyCmd prints the emotion tag of the given text.
func newClassifyCmd() *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := newAnalyzer(rulesFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), analyzer.Classify(strings.Join(args, " ")))
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "TOML emotion rules file")
	return cmd
}

// newEmpathyCmd prints the next empathy level.
func newEmpathyCmd() *cobra.Command {
	var opts struct {
		Emotion  string
		Previous int
		Count    int
	}

	cmd := &cobra.Command{
		Use:   "empathy",
		Short: "Compute the next empathy level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker := empathy.NewTracker(empathy.DefaultSchedule())
			level := tracker.Next(emotion.Tag(opts.Emotion), opts.Previous, opts.Count)
			fmt.Fprintln(cmd.OutOrStdout(), level)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Emotion, "emotion", "e", string(emotion.General), "Emotion tag")
	cmd.Flags().IntVarP(&opts.Previous, "prev", "p", 0, "Previous empathy level")
	cmd.Flags().IntVarP(&opts.Count, "count", "c", 0, "Messages so far")
	return cmd
}

// newReplyCmd prints a curated reply.
func newReplyCmd() *cobra.Command {
	var opts struct {
		Level     int
		Emotion   string
		Seed      uint64
		PoolsFile string
	}

	cmd := &cobra.Command{
		Use:   "reply <text>",
		Short: "Pick a curated reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pools reply.Pools
			if opts.PoolsFile != "" {
				loaded, err := reply.LoadPoolsFile(opts.PoolsFile)
				if err != nil {
					return err
				}
				pools = loaded
			}

			text := strings.Join(args, " ")
			tag := emotion.Tag(opts.Emotion)
			if tag == "" {
				tag = emotion.NewAnalyzer(nil).Classify(text)
			}

			selector := reply.NewSelector(pools, reply.NewRandPicker(opts.Seed))
			fmt.Fprintln(cmd.OutOrStdout(), selector.Select(text, opts.Level, tag))
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Level, "level", "l", empathy.Floor, "Empathy level")
	cmd.Flags().StringVarP(&opts.Emotion, "emotion", "e", "", "Emotion tag (classified from text when empty)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&opts.PoolsFile, "pools", "", "TOML reply pools file")
	return cmd
}

func newAnalyzer(rulesFile string) (*emotion.Analyzer, error) {
	if rulesFile == "" {
		return emotion.NewAnalyzer(nil), nil
	}
	rules, err := emotion.LoadRulesFile(rulesFile)
	if err != nil {
		return nil, err
	}
	return emotion.NewAnalyzer(rules), nil
}
