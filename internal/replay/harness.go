package replay

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/adaptive-universe/internal/codec"
	"github.com/danielpatrickdp/adaptive-universe/internal/gate"
	"github.com/danielpatrickdp/adaptive-universe/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// replayUser keys the per-user lock inside the replay orchestrator.
const replayUser = "replay"

// #region types
// Step is a single recorded simulation step: the inputs and the generator's
// canned reply (or failure).
type Step struct {
	StepID    string
	Horizon   universe.Horizon
	Standards []string
	Signals   []signals.Signal
	Reply     codec.Payload
	Fail      error // non-nil means the generator call fails
}

// ReplayConfig bundles orchestrator settings for a replay run.
type ReplayConfig struct {
	MaxAttempts int
	GateConfig  gate.GateConfig
}

// DefaultReplayConfig returns the orchestrator defaults.
func DefaultReplayConfig() ReplayConfig {
	d := orchestrator.DefaultConfig()
	return ReplayConfig{
		MaxAttempts: d.MaxAttempts,
		GateConfig:  d.Gate,
	}
}

// ReplayResult captures the outcome of replaying one step.
type ReplayResult struct {
	StepID     string
	Source     orchestrator.Source
	Reason     string // fallback cause, empty when generated
	DayIndex   int
	Violations []string // invariant breaches observed on this step
	State      universe.State
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps int
	Generated  int
	Fallbacks  int
	Violations int
	FinalState universe.State
}

// #endregion types

// #region replay
// Replay feeds steps through a real orchestrator backed by a scripted
// generator, checking state invariants after every step. Operates entirely
// in-memory.
func Replay(ctx context.Context, start universe.State, steps []Step, config ReplayConfig) []ReplayResult {
	var current Step
	gen := codec.GeneratorFunc(func(context.Context, codec.Request) (codec.Payload, error) {
		if current.Fail != nil {
			return codec.Payload{}, current.Fail
		}
		return current.Reply, nil
	})

	cfg := orchestrator.DefaultConfig()
	cfg.MaxAttempts = config.MaxAttempts
	cfg.Gate = config.GateConfig
	cfg.GenerateTimeout = 0
	orch := orchestrator.New(orchestrator.Deps{Generator: gen}, cfg)

	state := start
	results := make([]ReplayResult, 0, len(steps))
	for _, step := range steps {
		current = step
		out := orch.SimulateStep(ctx, replayUser, state, step.Horizon, step.Standards, step.Signals)

		r := ReplayResult{
			StepID:     step.StepID,
			Source:     out.Source,
			DayIndex:   out.State.Time.DayIndex,
			Violations: CheckStep(state, out.State, step.Horizon, out.Source),
			State:      out.State,
		}
		if out.Cause != nil {
			r.Reason = out.Cause.Error()
		}
		results = append(results, r)
		state = out.State
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, finalState universe.State) ReplaySummary {
	s := ReplaySummary{
		TotalSteps: len(results),
		FinalState: finalState,
	}
	for _, r := range results {
		switch r.Source {
		case orchestrator.SourceGenerated:
			s.Generated++
		case orchestrator.SourceFallback:
			s.Fallbacks++
		}
		s.Violations += len(r.Violations)
	}
	return s
}

// #endregion replay

// #region invariants
// CheckStep compares consecutive states and reports every invariant breach.
func CheckStep(prev, next universe.State, horizon universe.Horizon, source orchestrator.Source) []string {
	var v []string
	if next.ID != prev.ID {
		v = append(v, fmt.Sprintf("id changed %q -> %q", prev.ID, next.ID))
	}
	if next.Subject != prev.Subject || next.GradeBand != prev.GradeBand {
		v = append(v, "subject or grade band changed")
	}

	delta := next.Time.DayIndex - prev.Time.DayIndex
	if delta < 0 || delta > 1 {
		v = append(v, fmt.Sprintf("day index moved by %d", delta))
	}
	if source == orchestrator.SourceFallback {
		want := 0
		if horizon == universe.HorizonDay {
			want = 1
		}
		if delta != want {
			v = append(v, fmt.Sprintf("fallback on %s moved day index by %d", horizon, delta))
		}
	}

	if len(next.Log) < len(prev.Log) {
		v = append(v, fmt.Sprintf("log shrank %d -> %d", len(prev.Log), len(next.Log)))
	} else {
		for i := range prev.Log {
			if !sameEntry(prev.Log[i], next.Log[i]) {
				v = append(v, fmt.Sprintf("log entry %d rewritten", i))
				break
			}
		}
	}

	if e := next.Metrics.Engagement; e < -1 || e > 1 {
		v = append(v, fmt.Sprintf("engagement %v outside [-1, 1]", e))
	}
	return v
}

func sameEntry(a, b universe.LogEntry) bool {
	return a.At == b.At && a.Event == b.Event && string(a.Payload) == string(b.Payload)
}

// #endregion invariants
