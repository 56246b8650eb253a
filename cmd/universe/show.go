package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// #region show
func showCmd(opts *rootOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <user>",
		Short: "Display a learner's live universe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			live, err := a.store.Get(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), live.State)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revision: %d\n", live.Revision)
			return printState(cmd.OutOrStdout(), live.State)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the raw state as JSON")
	return cmd
}

// #endregion show

// #region list
func listCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every live universe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			arcs, err := a.store.List()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(arcs) == 0 {
				fmt.Fprintln(w, "No universes.")
				return nil
			}
			fmt.Fprintf(w, "%-16s| %-10s| %-5s| %-4s| %s\n", "User", "Subject", "Day", "Rev", "Title")
			for _, arc := range arcs {
				fmt.Fprintf(w, "%-16s| %-10s| %-5d| %-4d| %s\n",
					arc.UserID, arc.State.Subject, arc.State.Time.DayIndex, arc.Revision, arc.State.Title)
			}
			return nil
		},
	}
}

// #endregion list

// #region delete
func deleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user>",
		Short: "Remove a learner's universe and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted universe for %s.\n", args[0])
			return nil
		},
	}
}

// #endregion delete

// #region history
func historyCmd(opts *rootOptions) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "history <user>",
		Short: "Show a learner's saved snapshots, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			versions, err := a.store.History(args[0], last)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-36s| %-5s| %-10s| %s\n", "Version", "Day", "Horizon", "Last event")
			for _, v := range versions {
				event := ""
				if n := len(v.State.Log); n > 0 {
					event = v.State.Log[n-1].Event
				}
				fmt.Fprintf(w, "%-36s| %-5d| %-10s| %s\n", v.VersionID, v.State.Time.DayIndex, v.State.Time.Horizon, event)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "Show N most recent snapshots")
	return cmd
}

func rollbackCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <user> <version>",
		Short: "Point a learner's live universe at an earlier snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			rev, err := a.store.Rollback(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s to %s (revision %d).\n", args[0], args[1], rev)
			return nil
		},
	}
}

// #endregion history

// #region output
func printState(w io.Writer, st universe.State) error {
	fmt.Fprintf(w, "ID: %s\n", st.ID)
	fmt.Fprintf(w, "Title: %s\n", st.Title)
	fmt.Fprintf(w, "Subject: %s (grades %s)\n", st.Subject, st.GradeBand)
	fmt.Fprintf(w, "Synopsis: %s\n", st.Synopsis)
	if len(st.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(st.Tags, ", "))
	}
	if len(st.Props) > 0 {
		fmt.Fprintf(w, "Props: %s\n", strings.Join(st.Props, ", "))
	}
	fmt.Fprintf(w, "Day: %d (%s)\n", st.Time.DayIndex, st.Time.Horizon)
	fmt.Fprintf(w, "Engagement: %.2f\n", st.Metrics.Engagement)
	for _, id := range slices.Sorted(maps.Keys(st.Metrics.Mastery)) {
		fmt.Fprintf(w, "Mastery %s: %.2f\n", id, st.Metrics.Mastery[id])
	}
	fmt.Fprintf(w, "Log entries: %d\n", len(st.Log))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion output
