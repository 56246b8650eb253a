package prompt

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
	"github.com/stretchr/testify/assert"
)

func TestBriefEmbedsInputsAndRules(t *testing.T) {
	p := Brief("science", universe.Grades3to5, []string{"animals", "space"})

	assert.Contains(t, p, "Subject: science")
	assert.Contains(t, p, "Grade band: 3-5")
	assert.Contains(t, p, "Learner interests: animals, space")
	assert.Contains(t, p, "daily-life settings")
	assert.Contains(t, p, "60-80%")
	assert.Contains(t, p, "40%")
	assert.Contains(t, p, `"props": [string]`)
}

func TestBriefWithoutInterests(t *testing.T) {
	p := Brief("mathematics", universe.Grades6to8, nil)
	assert.Contains(t, p, "Learner interests: (none yet)")
}

func TestStepEmbedsStateAndSignals(t *testing.T) {
	st := universe.State{
		ID:        "u-1",
		Subject:   "mathematics",
		GradeBand: universe.Grades6to8,
		Title:     "Market Day",
		Props:     []string{"notebook", "whiteboard"},
		Time:      universe.TimeState{DayIndex: 2, Horizon: universe.HorizonDay},
	}
	p := Step(st, universe.HorizonDay, []string{"6.RP.1", "6.NS.5"},
		[]signals.Signal{{Tag: "space", Delta: 0.2}, {Tag: "sports", Delta: -0.1}})

	assert.Contains(t, p, `"title": "Market Day"`)
	assert.Contains(t, p, "Horizon for this step: day")
	assert.Contains(t, p, "Curriculum standards to target: 6.RP.1, 6.NS.5")
	assert.Contains(t, p, "space +0.20, sports -0.10")
	assert.Contains(t, p, "Do not reuse any of the previous step's props: notebook, whiteboard.")
	assert.Contains(t, p, "Advance time minimally")
}

func TestStepLongHorizonsAskForMilestones(t *testing.T) {
	st := universe.State{ID: "u-1"}
	for _, h := range []universe.Horizon{universe.HorizonWeek, universe.HorizonMonth, universe.HorizonYear} {
		p := Step(st, h, nil, nil)
		assert.Contains(t, p, "milestone", h)
		assert.NotContains(t, p, "Advance time minimally", h)
		assert.Contains(t, p, "Curriculum standards to target: (none)")
		assert.Contains(t, p, "Engagement signals since the last step: (none)")
	}
}

func TestStepIsDeterministic(t *testing.T) {
	st := universe.State{ID: "u-1", Tags: []string{"a"}}
	a := Step(st, universe.HorizonDay, []string{"x"}, nil)
	b := Step(st, universe.HorizonDay, []string{"x"}, nil)
	assert.Equal(t, a, b)
	assert.False(t, strings.HasPrefix(a, "template"))
}
