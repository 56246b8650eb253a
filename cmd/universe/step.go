package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

func stepCmd(opts *rootOptions) *cobra.Command {
	var (
		userID       string
		horizon      string
		standards    []string
		rawSignals   []string
		interactions []string
	)
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Advance a learner's live universe by one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := universe.Horizon(horizon)
			if !h.Valid() {
				return fmt.Errorf("unsupported horizon %q (want day, week, month, or year)", horizon)
			}
			sigs, err := parseSignals(rawSignals)
			if err != nil {
				return err
			}
			ins, err := parseInteractions(interactions)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, s := range sigs {
				a.buffer.Record(userID, s)
			}
			for _, in := range ins {
				if _, ok := a.producer.Observe(userID, in); !ok {
					return fmt.Errorf("unsupported interaction %s:%s", in.Kind, in.Tag)
				}
			}

			out, err := a.engine.Advance(cmd.Context(), userID, h, standards)
			if err != nil {
				return err
			}
			return printOutcome(cmd, out)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Learner identity")
	cmd.Flags().StringVar(&horizon, "horizon", string(universe.HorizonDay), "Step granularity: day, week, month, or year")
	cmd.Flags().StringSliceVar(&standards, "standard", nil, "Curriculum standard targeted today (repeatable)")
	cmd.Flags().StringArrayVar(&rawSignals, "signal", nil, "Engagement signal as tag=delta (repeatable)")
	cmd.Flags().StringArrayVar(&interactions, "interaction", nil, "Interaction as kind:tag, kind one of liked, completed, skipped, revisited (repeatable)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func parseSignals(raw []string) ([]signals.Signal, error) {
	out := make([]signals.Signal, 0, len(raw))
	for _, r := range raw {
		tag, value, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(tag) == "" {
			return nil, fmt.Errorf("signal %q: want tag=delta", r)
		}
		delta, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("signal %q: %w", r, err)
		}
		out = append(out, signals.Signal{Tag: strings.TrimSpace(tag), Delta: delta})
	}
	return out, nil
}

// parseInteractions rejects unknown kinds up front so a bad flag records nothing.
func parseInteractions(raw []string) ([]signals.Interaction, error) {
	weights := signals.DefaultProducerConfig().Weights
	out := make([]signals.Interaction, 0, len(raw))
	for _, r := range raw {
		kind, tag, ok := strings.Cut(r, ":")
		if !ok || strings.TrimSpace(tag) == "" {
			return nil, fmt.Errorf("interaction %q: want kind:tag", r)
		}
		k := signals.InteractionKind(strings.TrimSpace(kind))
		if _, ok := weights[k]; !ok {
			return nil, fmt.Errorf("interaction %q: unsupported kind %q", r, kind)
		}
		out = append(out, signals.Interaction{Tag: tag, Kind: k})
	}
	return out, nil
}
