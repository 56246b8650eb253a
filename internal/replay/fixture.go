package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-universe/internal/codec"
	"github.com/danielpatrickdp/adaptive-universe/internal/gate"
	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// ErrScriptedFailure is the generator error for fixture steps marked "fail".
var ErrScriptedFailure = errors.New("scripted generator failure")

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	StartState      universe.State          `json:"start_state"`
	Config          FixtureConfig           `json:"config"`
	Steps           []FixtureStep           `json:"steps"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureStep is one recorded step. Exactly one of Reply, ReplyText, or Fail
// is normally set; Reply wins over ReplyText.
type FixtureStep struct {
	StepID    string           `json:"step_id"`
	Horizon   universe.Horizon `json:"horizon"`
	Standards []string         `json:"standards"`
	Signals   []signals.Signal `json:"signals"`
	Reply     json.RawMessage  `json:"reply,omitempty"`
	ReplyText string           `json:"reply_text,omitempty"`
	Fail      string           `json:"fail,omitempty"`
}

// FixtureExpectedResult captures the expected source and day per step.
type FixtureExpectedResult struct {
	StepID   string `json:"step_id"`
	Source   string `json:"source"`
	DayIndex int    `json:"day_index"`
}

// FixtureConfig mirrors ReplayConfig with JSON tags. Zero values take defaults.
type FixtureConfig struct {
	MaxAttempts int               `json:"max_attempts"`
	GateConfig  FixtureGateConfig `json:"gate_config"`
}

// FixtureGateConfig mirrors gate.GateConfig with JSON tags.
type FixtureGateConfig struct {
	MaxTags     int `json:"max_tags"`
	MaxProps    int `json:"max_props"`
	MaxLogBatch int `json:"max_log_batch"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToStep converts a FixtureStep to a replay Step.
func (fs *FixtureStep) ToStep() Step {
	s := Step{
		StepID:    fs.StepID,
		Horizon:   fs.Horizon,
		Standards: fs.Standards,
		Signals:   fs.Signals,
		Reply:     codec.Payload{Object: fs.Reply, Text: fs.ReplyText},
	}
	if fs.Fail != "" {
		s.Fail = fmt.Errorf("%w: %s", ErrScriptedFailure, fs.Fail)
	}
	return s
}

// ToSteps converts every fixture step.
func (f *Fixture) ToSteps() []Step {
	steps := make([]Step, len(f.Steps))
	for i := range f.Steps {
		steps[i] = f.Steps[i].ToStep()
	}
	return steps
}

// ToReplayConfig converts a FixtureConfig to a ReplayConfig, filling zero
// fields from the defaults.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	c := DefaultReplayConfig()
	if fc.MaxAttempts > 0 {
		c.MaxAttempts = fc.MaxAttempts
	}
	g := gate.GateConfig{
		MaxTags:     fc.GateConfig.MaxTags,
		MaxProps:    fc.GateConfig.MaxProps,
		MaxLogBatch: fc.GateConfig.MaxLogBatch,
	}
	if g.MaxTags > 0 {
		c.GateConfig.MaxTags = g.MaxTags
	}
	if g.MaxProps > 0 {
		c.GateConfig.MaxProps = g.MaxProps
	}
	if g.MaxLogBatch > 0 {
		c.GateConfig.MaxLogBatch = g.MaxLogBatch
	}
	return c
}

// #endregion fixture-loader
