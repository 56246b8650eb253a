package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func interestCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Inspect and adjust learner interest profiles",
	}
	cmd.AddCommand(interestBumpCmd(opts))
	cmd.AddCommand(interestTopCmd(opts))
	return cmd
}

func interestBumpCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bump <user> <tag> [delta]",
		Short: "Add to a learner's count for a tag (default delta 1)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta := 1.0
			if len(args) == 3 {
				d, err := strconv.ParseFloat(args[2], 64)
				if err != nil {
					return fmt.Errorf("delta %q: %w", args[2], err)
				}
				delta = d
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p := a.tracker.Bump(args[0], args[1], delta)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s = %g\n", args[0], args[1], p.Counts[args[1]])
			return nil
		},
	}
}

func interestTopCmd(opts *rootOptions) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "top <user>",
		Short: "List a learner's strongest interest tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			tags := a.tracker.TopTags(args[0], k)
			if len(tags) == 0 {
				fmt.Fprintln(w, "No interests recorded.")
				return nil
			}
			for i, tag := range tags {
				fmt.Fprintf(w, "%d. %s (%g)\n", i+1, tag, a.tracker.Score(args[0], tag))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 3, "Number of tags")
	return cmd
}
