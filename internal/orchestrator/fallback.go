package orchestrator

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// engagementNudge is added to engagement by every fallback step.
const engagementNudge = 0.1

// fallbackProps are everyday objects used when no generated props exist.
var fallbackProps = []string{"notebook", "kitchen timer", "measuring tape"}

// #region fallback-create

// fallbackCreate builds a universe from static text and the locally known
// interests. Time and metrics are always the initial values.
func (o *Orchestrator) fallbackCreate(subject string, band universe.GradeBand, interests []string, cause error) Outcome {
	name := displaySubject(subject)
	st := universe.State{
		ID:        uuid.New().String(),
		Subject:   subject,
		GradeBand: band,
		Title:     fmt.Sprintf("Everyday %s", name),
		Synopsis: fmt.Sprintf(
			"Your %s universe is warming up. Each day brings a small puzzle from home or school to work through.",
			strings.ToLower(name)),
		Tags:    nonNil(interests),
		Props:   nonNil(fallbackProps),
		Time:    universe.TimeState{DayIndex: 0, Horizon: universe.HorizonDay},
		Metrics: universe.Metrics{Mastery: map[string]float64{}, Engagement: 0},
		Log: []universe.LogEntry{
			universe.NewLogEntry(o.now(), EventFallback, map[string]string{"error": cause.Error()}),
		},
	}
	o.logger.Warn("universe fallback",
		zap.String("universe", st.ID),
		zap.String("subject", subject),
		zap.Error(cause))
	return Outcome{State: st, Source: SourceFallback, Cause: cause}
}

// #endregion

// #region fallback-step

// fallbackStep applies the minimal continuation diff: one day_continued log
// entry, a day advance only for day horizons, and a small engagement nudge.
func (o *Orchestrator) fallbackStep(st universe.State, horizon universe.Horizon, cause error) Outcome {
	diff := universe.Diff{
		Metrics: &universe.MetricsPatch{
			Engagement: universe.Ptr(universe.ClampEngagement(st.Metrics.Engagement + engagementNudge)),
		},
		Log: []universe.LogEntry{
			universe.NewLogEntry(o.now(), EventDayContinued, map[string]string{"error": cause.Error()}),
		},
		AdvanceDay: horizon == universe.HorizonDay,
	}
	next := universe.ApplyDiff(st, diff)
	if horizon.Valid() {
		next.Time.Horizon = horizon
	}
	o.logger.Warn("step fallback",
		zap.String("universe", st.ID),
		zap.String("horizon", string(horizon)),
		zap.Error(cause))
	return Outcome{State: next, Source: SourceFallback, Cause: cause}
}

// #endregion

func displaySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "Learning"
	}
	r, size := utf8.DecodeRuneInString(subject)
	return string(unicode.ToUpper(r)) + subject[size:]
}
