package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-universe/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

func createCmd(opts *rootOptions) *cobra.Command {
	var userID, subject, band string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create or refresh a learner's universe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gradeBand := universe.GradeBand(band)
			if !gradeBand.Valid() {
				return fmt.Errorf("unsupported grade band %q (want 3-5, 6-8, or 9-12)", band)
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := a.engine.CreateOrRefresh(cmd.Context(), userID, subject, gradeBand)
			return printOutcome(cmd, out)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Learner identity")
	cmd.Flags().StringVar(&subject, "subject", "", "Curriculum subject")
	cmd.Flags().StringVar(&band, "grade-band", string(universe.Grades6to8), "Grade band: 3-5, 6-8, or 9-12")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func printOutcome(cmd *cobra.Command, out orchestrator.Outcome) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Source: %s\n", out.Source)
	if out.Cause != nil {
		fmt.Fprintf(w, "Cause: %v\n", out.Cause)
	}
	return printState(w, out.State)
}
