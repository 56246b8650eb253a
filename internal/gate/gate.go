package gate

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/adaptive-universe/internal/codec"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// #region gate
// Gate decides whether generated content may be folded into a universe.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// #endregion gate

// #region evaluate-brief
// EvaluateBrief checks a creation reply.
func (g *Gate) EvaluateBrief(b codec.Brief) GateDecision {
	var vetoes []VetoSignal

	if strings.TrimSpace(b.Title) == "" {
		vetoes = append(vetoes, VetoSignal{Type: VetoMissingField, Reason: "brief has no title"})
	}
	if strings.TrimSpace(b.Synopsis) == "" {
		vetoes = append(vetoes, VetoSignal{Type: VetoMissingField, Reason: "brief has no synopsis"})
	}
	vetoes = append(vetoes, g.checkLists(b.Tags, b.Props)...)

	if len(vetoes) > 0 {
		return reject(vetoes)
	}
	score := propScore(nil, b.Props)
	return GateDecision{
		Action:    "commit",
		Reason:    fmt.Sprintf("passed gate: soft_score=%.4f", score),
		SoftScore: score,
	}
}

// #endregion evaluate-brief

// #region evaluate-diff
// EvaluateDiff checks a step reply against the state it would be applied to.
func (g *Gate) EvaluateDiff(old universe.State, d universe.Diff) GateDecision {
	var vetoes []VetoSignal

	if d.Title != nil && strings.TrimSpace(*d.Title) == "" {
		vetoes = append(vetoes, VetoSignal{Type: VetoMissingField, Reason: "diff blanks the title"})
	}
	vetoes = append(vetoes, g.checkLists(d.Tags, d.Props)...)

	if m := d.Metrics; m != nil {
		if m.Engagement != nil && !inRange(*m.Engagement, -1, 1) {
			vetoes = append(vetoes, VetoSignal{
				Type:   VetoOutOfRange,
				Reason: fmt.Sprintf("engagement %v outside [-1, 1]", *m.Engagement),
			})
		}
		for id, v := range m.Mastery {
			if !inRange(v, 0, 1) {
				vetoes = append(vetoes, VetoSignal{
					Type:   VetoOutOfRange,
					Reason: fmt.Sprintf("mastery %s=%v outside [0, 1]", id, v),
				})
			}
		}
	}

	if len(d.Log) > g.config.MaxLogBatch {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoOversized,
			Reason: fmt.Sprintf("%d log entries exceeds cap %d", len(d.Log), g.config.MaxLogBatch),
		})
	}
	for i, e := range d.Log {
		if strings.TrimSpace(e.Event) == "" {
			vetoes = append(vetoes, VetoSignal{
				Type:   VetoBadLogEntry,
				Reason: fmt.Sprintf("log entry %d has no event name", i),
			})
		}
	}

	if len(vetoes) > 0 {
		return reject(vetoes)
	}

	score := diffScore(old, d)
	return GateDecision{
		Action:    "commit",
		Reason:    fmt.Sprintf("passed gate: soft_score=%.4f", score),
		SoftScore: score,
	}
}

// #endregion evaluate-diff

// #region helpers
func (g *Gate) checkLists(tags, props []string) []VetoSignal {
	var vetoes []VetoSignal
	if len(tags) > g.config.MaxTags {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoOversized,
			Reason: fmt.Sprintf("%d tags exceeds cap %d", len(tags), g.config.MaxTags),
		})
	}
	if len(props) > g.config.MaxProps {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoOversized,
			Reason: fmt.Sprintf("%d props exceeds cap %d", len(props), g.config.MaxProps),
		})
	}
	for _, s := range append(append([]string{}, tags...), props...) {
		if strings.TrimSpace(s) == "" {
			vetoes = append(vetoes, VetoSignal{Type: VetoMissingField, Reason: "blank tag or prop"})
			break
		}
	}
	return vetoes
}

func reject(vetoes []VetoSignal) GateDecision {
	return GateDecision{
		Action:      "reject",
		Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
		Vetoed:      true,
		VetoSignals: vetoes,
	}
}

// inRange is false for NaN.
func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// diffScore rewards prop rotation (weight 0.6) and a narrative log entry (weight 0.4).
func diffScore(old universe.State, d universe.Diff) float32 {
	var score float32
	if d.Props != nil {
		score += 0.6 * propScore(old.Props, d.Props)
	}
	if len(d.Log) > 0 {
		score += 0.4
	}
	return score
}

// propScore is the fraction of next props not present in prev.
func propScore(prev, next []string) float32 {
	if len(next) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(prev))
	for _, p := range prev {
		seen[strings.ToLower(p)] = struct{}{}
	}
	fresh := 0
	for _, p := range next {
		if _, ok := seen[strings.ToLower(p)]; !ok {
			fresh++
		}
	}
	return float32(fresh) / float32(len(next))
}

// #endregion helpers
