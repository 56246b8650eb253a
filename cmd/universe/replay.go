package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-universe/internal/replay"
)

// #region command
func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <fixture.json>",
		Short: "Replay a recorded fixture and compare outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := replay.LoadFixture(args[0])
			if err != nil {
				return err
			}
			results := replay.Replay(cmd.Context(), f.StartState, f.ToSteps(), f.Config.ToReplayConfig())
			if diverge := printComparison(cmd.OutOrStdout(), results, f.ExpectedResults); diverge > 0 {
				return fmt.Errorf("%d step(s) diverged", diverge)
			}
			return nil
		},
	}
}

// #endregion command

// #region output

// printComparison writes a comparison table and returns the number of
// diverging steps. A step diverges when its source or day differs from the
// expectation or when it broke an invariant.
func printComparison(w io.Writer, results []replay.ReplayResult, expected []replay.FixtureExpectedResult) int {
	fmt.Fprintf(w, "%-12s| %-20s| %-20s| %s\n", "Step", "Expected", "Replayed", "Match")
	fmt.Fprintf(w, "%-12s+%-21s+%-21s+%s\n",
		"------------", "---------------------", "---------------------", "------")

	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	matches := 0
	for i := 0; i < total; i++ {
		r := results[i]
		exp := fmt.Sprintf("%s@%d", expected[i].Source, expected[i].DayIndex)
		got := fmt.Sprintf("%s@%d", r.Source, r.DayIndex)
		match := "DIFF"
		if exp == got && len(r.Violations) == 0 {
			match = "OK"
			matches++
		}
		fmt.Fprintf(w, "%-12s| %-20s| %-20s| %s\n", r.StepID, exp, got, match)
		for _, v := range r.Violations {
			fmt.Fprintf(w, "    violation: %s\n", v)
		}
	}

	if len(results) > 0 {
		s := replay.Summarize(results, results[len(results)-1].State)
		fmt.Fprintf(w, "\nSummary: %d total, %d generated, %d fallback, %d match, %d diverge\n",
			s.TotalSteps, s.Generated, s.Fallbacks, matches, total-matches)
	}
	diverge := total - matches
	if len(results) != len(expected) {
		diverge++
	}
	return diverge
}

// #endregion output
