package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func eventsCmd(opts *rootOptions) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent telemetry events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.events.RecentEvents(last)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, e := range events {
				fmt.Fprintf(w, "%s  %-18s %s\n", e.CreatedAt.Format("2006-01-02T15:04:05Z"), e.Name, e.Payload)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "Show N most recent events")
	return cmd
}
