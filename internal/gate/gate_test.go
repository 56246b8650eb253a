package gate

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/adaptive-universe/internal/codec"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

func makeState() universe.State {
	return universe.State{
		ID:    "u-1",
		Title: "Market Day",
		Props: []string{"notebook", "whiteboard"},
		Time:  universe.TimeState{Horizon: universe.HorizonDay},
	}
}

func TestGateCommitsCleanBrief(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.EvaluateBrief(codec.Brief{
		Title: "Lab Rescue", Synopsis: "...", Props: []string{"microscope", "notebook"}, Tags: []string{"space"},
	})
	if d.Action != "commit" {
		t.Fatalf("expected commit, got %s: %s", d.Action, d.Reason)
	}
	if d.SoftScore != 1 {
		t.Fatalf("expected all-fresh props score 1, got %f", d.SoftScore)
	}
}

func TestGateRejectsBriefWithoutTitle(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.EvaluateBrief(codec.Brief{Title: "  ", Synopsis: "x"})
	if d.Action != "reject" || !d.Vetoed {
		t.Fatalf("expected reject, got %s", d.Action)
	}
	if d.VetoSignals[0].Type != VetoMissingField {
		t.Fatalf("expected missing_field, got %s", d.VetoSignals[0].Type)
	}
}

func TestGateCommitsEmptyDiff(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.EvaluateDiff(makeState(), universe.Diff{})
	if d.Action != "commit" {
		t.Fatalf("expected commit, got %s: %s", d.Action, d.Reason)
	}
	if d.SoftScore != 0 {
		t.Fatalf("expected zero soft score, got %f", d.SoftScore)
	}
}

func TestGateRejectsOutOfRangeEngagement(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	for _, v := range []float64{1.5, -1.01, math.NaN()} {
		d := g.EvaluateDiff(makeState(), universe.Diff{
			Metrics: &universe.MetricsPatch{Engagement: universe.Ptr(v)},
		})
		if d.Action != "reject" {
			t.Fatalf("engagement %v: expected reject, got %s", v, d.Action)
		}
		if d.VetoSignals[0].Type != VetoOutOfRange {
			t.Fatalf("expected out_of_range, got %s", d.VetoSignals[0].Type)
		}
	}
}

func TestGateAcceptsBoundaryEngagement(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	for _, v := range []float64{-1, 0, 1} {
		d := g.EvaluateDiff(makeState(), universe.Diff{
			Metrics: &universe.MetricsPatch{Engagement: universe.Ptr(v)},
		})
		if d.Action != "commit" {
			t.Fatalf("engagement %v: expected commit, got %s: %s", v, d.Action, d.Reason)
		}
	}
}

func TestGateRejectsOutOfRangeMastery(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.EvaluateDiff(makeState(), universe.Diff{
		Metrics: &universe.MetricsPatch{Mastery: map[string]float64{"6.RP.1": 0.3, "6.NS.5": 1.2}},
	})
	if d.Action != "reject" {
		t.Fatalf("expected reject, got %s", d.Action)
	}
	if len(d.VetoSignals) != 1 {
		t.Fatalf("expected one veto, got %d", len(d.VetoSignals))
	}
}

func TestGateRejectsBlankTitleAndBadLog(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.EvaluateDiff(makeState(), universe.Diff{
		Title: universe.Ptr(""),
		Log:   []universe.LogEntry{{At: "t", Event: ""}},
	})
	if d.Action != "reject" {
		t.Fatalf("expected reject, got %s", d.Action)
	}
	if len(d.VetoSignals) != 2 {
		t.Fatalf("expected two vetoes, got %d", len(d.VetoSignals))
	}
}

func TestGateRejectsOversizedLists(t *testing.T) {
	g := NewGate(GateConfig{MaxTags: 2, MaxProps: 2, MaxLogBatch: 1})
	d := g.EvaluateDiff(makeState(), universe.Diff{
		Tags: []string{"a", "b", "c"},
		Log:  []universe.LogEntry{{Event: "a"}, {Event: "b"}},
	})
	if d.Action != "reject" {
		t.Fatalf("expected reject, got %s", d.Action)
	}
	for _, v := range d.VetoSignals {
		if v.Type != VetoOversized {
			t.Fatalf("expected oversized vetoes only, got %s", v.Type)
		}
	}
}

func TestGateRejectsBlankProp(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.EvaluateDiff(makeState(), universe.Diff{Props: []string{"ruler", " "}})
	if d.Action != "reject" {
		t.Fatalf("expected reject, got %s", d.Action)
	}
}

func TestGateSoftScoreRewardsRotation(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	reused := g.EvaluateDiff(makeState(), universe.Diff{Props: []string{"Notebook", "whiteboard"}})
	rotated := g.EvaluateDiff(makeState(), universe.Diff{
		Props: []string{"ruler", "calendar"},
		Log:   []universe.LogEntry{{Event: "quest_started"}},
	})
	if reused.SoftScore != 0 {
		t.Fatalf("expected reused props to score 0, got %f", reused.SoftScore)
	}
	if rotated.SoftScore != 1 {
		t.Fatalf("expected rotated props + log to score 1, got %f", rotated.SoftScore)
	}
}
