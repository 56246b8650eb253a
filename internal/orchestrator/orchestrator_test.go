package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-universe/internal/arc"
	"github.com/danielpatrickdp/adaptive-universe/internal/codec"
	"github.com/danielpatrickdp/adaptive-universe/internal/interest"
	"github.com/danielpatrickdp/adaptive-universe/internal/logging"
	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// #region fakes

// script replays canned replies in order; the last one repeats.
type script struct {
	mu       sync.Mutex
	replies  []scripted
	requests []codec.Request
}

type scripted struct {
	text string
	err  error
}

func (s *script) Generate(_ context.Context, req codec.Request) (codec.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	r := s.replies[i]
	if r.err != nil {
		return codec.Payload{}, r.err
	}
	return codec.Payload{Text: r.text}, nil
}

func (s *script) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func replies(texts ...string) *script {
	s := &script{}
	for _, t := range texts {
		s.replies = append(s.replies, scripted{text: t})
	}
	return s
}

func failing(err error) *script {
	return &script{replies: []scripted{{err: err}}}
}

type recordedEvent struct {
	name    string
	payload map[string]any
}

type fakeTelemetry struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeTelemetry) LogEvent(name string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, _ := payload.(map[string]any)
	f.events = append(f.events, recordedEvent{name: name, payload: p})
}

func (f *fakeTelemetry) all() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedEvent(nil), f.events...)
}

var errNetwork = errors.New("connection refused")

const labRescue = `{"title":"Lab Rescue","synopsis":"...","props":["microscope","notebook"],"tags":["space"]}`

func newTracker(t *testing.T, user string, tags ...string) *interest.Tracker {
	t.Helper()
	tr := interest.NewTracker(interest.NewMemoryRepository(), nil)
	for _, tag := range tags {
		tr.Bump(user, tag, 1)
	}
	return tr
}

func newStore(t *testing.T) *arc.Store {
	t.Helper()
	s, err := arc.NewStore(filepath.Join(t.TempDir(), "arcs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newOrchestrator(gen codec.Generator, deps Deps, mutate ...func(*Config)) *Orchestrator {
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	deps.Generator = gen
	return New(deps, cfg)
}

func baseState() universe.State {
	return universe.State{
		ID:        "u-1",
		Subject:   "mathematics",
		GradeBand: universe.Grades6to8,
		Title:     "Ratio Ranch",
		Synopsis:  "A ranch that runs on ratios.",
		Tags:      []string{"animals"},
		Props:     []string{"feed bag"},
		Time:      universe.TimeState{DayIndex: 2, Horizon: universe.HorizonDay},
		Metrics:   universe.Metrics{Mastery: map[string]float64{"6.RP.1": 0.2}, Engagement: 0.1},
		Log:       []universe.LogEntry{{At: "2026-01-01T00:00:00Z", Event: EventInitialized}},
	}
}

func logPayload(t *testing.T, e universe.LogEntry) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(e.Payload, &m))
	return m
}

// #endregion fakes

// #region create

func TestCreateFreshScenario(t *testing.T) {
	gen := replies(labRescue)
	o := newOrchestrator(gen, Deps{Interests: newTracker(t, "alice", "space", "animals")})

	out := o.CreateOrRefresh(context.Background(), "alice", "science", universe.Grades3to5)

	require.Equal(t, SourceGenerated, out.Source)
	require.NoError(t, out.Cause)
	st := out.State
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "Lab Rescue", st.Title)
	assert.Equal(t, []string{"space"}, st.Tags)
	assert.Equal(t, []string{"microscope", "notebook"}, st.Props)
	assert.Equal(t, 0, st.Time.DayIndex)
	assert.Equal(t, universe.HorizonDay, st.Time.Horizon)
	assert.Equal(t, map[string]float64{}, st.Metrics.Mastery)
	assert.Zero(t, st.Metrics.Engagement)
	require.Len(t, st.Log, 1)
	assert.Equal(t, EventInitialized, st.Log[0].Event)

	require.Equal(t, 1, gen.calls())
	req := gen.requests[0]
	assert.Equal(t, codec.KindBrief, req.Kind)
	assert.Equal(t, 4, req.GradeLevel)
	assert.Equal(t, []string{"animals", "space"}, req.Interests)
	assert.Contains(t, req.Prompt, "science")
}

func TestCreateUsesInterestsWhenBriefHasNoTags(t *testing.T) {
	gen := replies(`{"title":"Lab Rescue","synopsis":"...","props":["beaker"]}`)
	o := newOrchestrator(gen, Deps{Interests: newTracker(t, "alice", "space")})

	out := o.CreateOrRefresh(context.Background(), "alice", "science", universe.Grades3to5)
	require.Equal(t, SourceGenerated, out.Source)
	assert.Equal(t, []string{"space"}, out.State.Tags)
}

func TestCreateFallbackDeterminism(t *testing.T) {
	cases := map[string][]string{
		"no interests":   nil,
		"one interest":   {"robots"},
		"many interests": {"a", "b", "c", "d", "e"},
	}
	for name, tags := range cases {
		t.Run(name, func(t *testing.T) {
			o := newOrchestrator(failing(errNetwork), Deps{Interests: newTracker(t, "alice", tags...)})

			out := o.CreateOrRefresh(context.Background(), "alice", "mathematics", universe.Grades6to8)

			assert.Equal(t, SourceFallback, out.Source)
			assert.True(t, out.Fallback())
			assert.ErrorIs(t, out.Cause, errNetwork)
			assert.Equal(t, universe.TimeState{DayIndex: 0, Horizon: universe.HorizonDay}, out.State.Time)
			if diff := cmp.Diff(universe.Metrics{Mastery: map[string]float64{}, Engagement: 0}, out.State.Metrics); diff != "" {
				t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
			}
			assert.LessOrEqual(t, len(out.State.Tags), 3)
			assert.NotNil(t, out.State.Tags)
			assert.NotEmpty(t, out.State.Title)
			assert.Equal(t, "mathematics", out.State.Subject)

			require.Len(t, out.State.Log, 1)
			assert.Equal(t, EventFallback, out.State.Log[0].Event)
			assert.Contains(t, logPayload(t, out.State.Log[0])["error"], "connection refused")
		})
	}
}

func TestCreateFallbackCauses(t *testing.T) {
	cases := []struct {
		name string
		gen  codec.Generator
		band universe.GradeBand
		want error
	}{
		{"nil generator", nil, universe.Grades6to8, codec.ErrGeneratorUnavailable},
		{"no json", replies("I cannot help with that."), universe.Grades6to8, codec.ErrMalformedReply},
		{"wrong types", replies(`{"title":7,"synopsis":"x"}`), universe.Grades6to8, codec.ErrMalformedReply},
		{"blank title", replies(`{"title":"","synopsis":"x"}`), universe.Grades6to8, ErrRejected},
		{"bad grade band", replies(labRescue), universe.GradeBand("K-2"), ErrRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := New(Deps{Generator: tc.gen, Interests: newTracker(t, "alice")}, DefaultConfig())
			out := o.CreateOrRefresh(context.Background(), "alice", "mathematics", tc.band)
			assert.Equal(t, SourceFallback, out.Source)
			assert.ErrorIs(t, out.Cause, tc.want)
		})
	}
}

func TestCreateSupersedesAndPersists(t *testing.T) {
	store := newStore(t)
	tel := &fakeTelemetry{}
	o := newOrchestrator(replies(labRescue), Deps{
		Interests: newTracker(t, "alice"),
		Store:     store,
		Telemetry: tel,
	})

	first := o.CreateOrRefresh(context.Background(), "alice", "science", universe.Grades3to5)
	second := o.CreateOrRefresh(context.Background(), "alice", "science", universe.Grades3to5)
	assert.NotEqual(t, first.State.ID, second.State.ID)

	live, ok := store.Load("alice")
	require.True(t, ok)
	assert.Equal(t, second.State.ID, live.State.ID)
	assert.EqualValues(t, 2, live.Revision)

	events := tel.all()
	require.Len(t, events, 2)
	assert.Equal(t, logging.EventUniverseCreated, events[0].name)
	assert.Equal(t, SourceGenerated, events[0].payload["source"])
	assert.Equal(t, "alice", events[0].payload["userId"])
}

func TestCreateFallbackStillPersists(t *testing.T) {
	store := newStore(t)
	tel := &fakeTelemetry{}
	o := newOrchestrator(failing(errNetwork), Deps{Interests: newTracker(t, "alice"), Store: store, Telemetry: tel})

	out := o.CreateOrRefresh(context.Background(), "alice", "science", universe.Grades3to5)

	live, ok := store.Load("alice")
	require.True(t, ok)
	assert.Equal(t, out.State.ID, live.State.ID)
	require.Len(t, tel.all(), 1)
	assert.Equal(t, SourceFallback, tel.all()[0].payload["source"])
}

// #endregion create

// #region step

func TestStepPartialDiffKeepsMastery(t *testing.T) {
	o := newOrchestrator(replies(`{"metrics":{"engagement":0.3}}`), Deps{})

	out := o.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonDay, nil, nil)

	require.Equal(t, SourceGenerated, out.Source)
	want := universe.Metrics{Mastery: map[string]float64{"6.RP.1": 0.2}, Engagement: 0.3}
	if diff := cmp.Diff(want, out.State.Metrics); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestStepMasteryReplacesWholesale(t *testing.T) {
	st := baseState()
	st.Metrics.Mastery = map[string]float64{"6.RP.1": 0.2, "6.NS.5": 0.1}
	o := newOrchestrator(replies(`{"metrics":{"mastery":{"6.RP.1":0.25}}}`), Deps{})

	out := o.SimulateStep(context.Background(), "alice", st, universe.HorizonDay, nil, nil)

	require.Equal(t, SourceGenerated, out.Source)
	assert.Equal(t, map[string]float64{"6.RP.1": 0.25}, out.State.Metrics.Mastery)
	assert.Equal(t, 0.1, out.State.Metrics.Engagement)
	assert.Equal(t, map[string]float64{"6.RP.1": 0.2, "6.NS.5": 0.1}, st.Metrics.Mastery, "input mutated")
}

func TestStepRequestCarriesContext(t *testing.T) {
	gen := replies(`{"advanceDay":true}`)
	o := newOrchestrator(gen, Deps{})

	sigs := []signals.Signal{{Tag: "robots", Delta: 0.2}}
	o.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonWeek, []string{"6.RP.3"}, sigs)

	require.Equal(t, 1, gen.calls())
	req := gen.requests[0]
	assert.Equal(t, codec.KindStep, req.Kind)
	assert.Equal(t, 7, req.GradeLevel)
	assert.Contains(t, req.Prompt, "6.RP.3")
	assert.Contains(t, req.Prompt, "robots +0.20")
	assert.Contains(t, req.Prompt, "feed bag")
}

func TestStepSetsHorizon(t *testing.T) {
	o := newOrchestrator(replies(`{"title":"Harvest Month"}`), Deps{})

	out := o.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonMonth, nil, nil)

	assert.Equal(t, universe.HorizonMonth, out.State.Time.Horizon)
	assert.Equal(t, 2, out.State.Time.DayIndex)
	assert.Equal(t, "Harvest Month", out.State.Title)
}

func TestStepFallback(t *testing.T) {
	cases := []struct {
		name       string
		horizon    universe.Horizon
		engagement float64
		wantDay    int
		wantEng    float64
	}{
		{"day advances", universe.HorizonDay, 0.1, 3, 0.2},
		{"week holds day", universe.HorizonWeek, 0.1, 2, 0.2},
		{"engagement clamps", universe.HorizonDay, 0.95, 3, 1},
		{"negative engagement rises", universe.HorizonYear, -1, 2, -0.9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := baseState()
			st.Metrics.Engagement = tc.engagement
			o := newOrchestrator(failing(errNetwork), Deps{})

			out := o.SimulateStep(context.Background(), "alice", st, tc.horizon, nil, nil)

			assert.Equal(t, SourceFallback, out.Source)
			assert.ErrorIs(t, out.Cause, errNetwork)
			assert.Equal(t, tc.wantDay, out.State.Time.DayIndex)
			assert.Equal(t, tc.horizon, out.State.Time.Horizon)
			assert.InDelta(t, tc.wantEng, out.State.Metrics.Engagement, 1e-9)
			assert.Equal(t, st.Metrics.Mastery, out.State.Metrics.Mastery)
			assert.Equal(t, st.Title, out.State.Title)

			require.Len(t, out.State.Log, len(st.Log)+1)
			last := out.State.Log[len(out.State.Log)-1]
			assert.Equal(t, EventDayContinued, last.Event)
			assert.Contains(t, logPayload(t, last)["error"], "connection refused")
		})
	}
}

func TestStepGateRejectsOutOfRange(t *testing.T) {
	o := newOrchestrator(replies(`{"metrics":{"engagement":4}}`), Deps{})

	out := o.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonDay, nil, nil)

	assert.Equal(t, SourceFallback, out.Source)
	assert.ErrorIs(t, out.Cause, ErrRejected)
	assert.InDelta(t, 0.2, out.State.Metrics.Engagement, 1e-9)
}

func TestStepUnknownHorizon(t *testing.T) {
	gen := replies(`{"advanceDay":true}`)
	o := newOrchestrator(gen, Deps{})

	out := o.SimulateStep(context.Background(), "alice", baseState(), universe.Horizon("decade"), nil, nil)

	assert.Equal(t, SourceFallback, out.Source)
	assert.ErrorIs(t, out.Cause, ErrRejected)
	assert.Equal(t, 2, out.State.Time.DayIndex)
	assert.Equal(t, universe.HorizonDay, out.State.Time.Horizon)
	assert.Zero(t, gen.calls())
}

func TestStepIdentityStability(t *testing.T) {
	gen := replies(
		`{"id":"hijacked","subject":"history","gradeBand":"9-12","title":"New","advanceDay":true}`,
		`{"tags":["robots"],"props":["wrench"]}`,
	)
	o := newOrchestrator(gen, Deps{})
	st := baseState()

	for i := 0; i < 4; i++ {
		st = o.SimulateStep(context.Background(), "alice", st, universe.HorizonDay, nil, nil).State
		assert.Equal(t, "u-1", st.ID)
		assert.Equal(t, "mathematics", st.Subject)
		assert.Equal(t, universe.Grades6to8, st.GradeBand)
	}
}

func TestStepMonotonicDayIndex(t *testing.T) {
	gen := &script{replies: []scripted{
		{text: `{"advanceDay":true}`},
		{text: `{"advanceDay":false}`},
		{err: errNetwork},
		{text: `{"advanceDay":true}`},
		{err: errNetwork},
		{text: `{"advanceDay":true,"log":[{"t":"2026-01-02T00:00:00Z","event":"milestone"}]}`},
	}}
	horizons := []universe.Horizon{
		universe.HorizonDay,
		universe.HorizonDay,
		universe.HorizonDay,
		universe.HorizonWeek,
		universe.HorizonMonth,
		universe.HorizonDay,
	}
	// Day advances: generated true, fallback on a day, generated true on a
	// week (explicit request), generated true. The month fallback holds.
	const wantAdvances = 4

	o := newOrchestrator(gen, Deps{})
	st := baseState()
	start := st.Time.DayIndex
	prevLog := len(st.Log)
	for _, h := range horizons {
		next := o.SimulateStep(context.Background(), "alice", st, h, nil, nil).State
		assert.GreaterOrEqual(t, next.Time.DayIndex, st.Time.DayIndex)
		assert.GreaterOrEqual(t, len(next.Log), prevLog)
		assert.Equal(t, st.Log, next.Log[:len(st.Log)])
		prevLog = len(next.Log)
		st = next
	}
	assert.Equal(t, start+wantAdvances, st.Time.DayIndex)
}

func TestStepGenerateTimeout(t *testing.T) {
	gen := codec.GeneratorFunc(func(ctx context.Context, _ codec.Request) (codec.Payload, error) {
		<-ctx.Done()
		return codec.Payload{}, ctx.Err()
	})
	o := newOrchestrator(gen, Deps{}, func(c *Config) { c.GenerateTimeout = 20 * time.Millisecond })

	out := o.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonDay, nil, nil)

	assert.Equal(t, SourceFallback, out.Source)
	assert.ErrorIs(t, out.Cause, context.DeadlineExceeded)
	assert.Equal(t, 3, out.State.Time.DayIndex)
}

func TestStepCancelledContext(t *testing.T) {
	gen := replies(`{"advanceDay":true}`)
	o := newOrchestrator(gen, Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := o.SimulateStep(ctx, "alice", baseState(), universe.HorizonDay, nil, nil)

	assert.Equal(t, SourceFallback, out.Source)
	assert.ErrorIs(t, out.Cause, context.Canceled)
	assert.Zero(t, gen.calls())
}

func TestCancelledWaitReportsWithoutSaving(t *testing.T) {
	store := newStore(t)
	tel := &fakeTelemetry{}
	o := newOrchestrator(replies(labRescue), Deps{
		Interests: newTracker(t, "alice"),
		Store:     store,
		Telemetry: tel,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	created := o.CreateOrRefresh(ctx, "alice", "science", universe.Grades3to5)
	stepped := o.SimulateStep(ctx, "alice", baseState(), universe.HorizonDay, nil, nil)

	assert.Equal(t, SourceFallback, created.Source)
	assert.Equal(t, SourceFallback, stepped.Source)
	_, ok := store.Load("alice")
	assert.False(t, ok, "cancelled operations must not persist")

	events := tel.all()
	require.Len(t, events, 2)
	assert.Equal(t, logging.EventUniverseCreated, events[0].name)
	assert.Equal(t, SourceFallback, events[0].payload["source"])
	assert.Equal(t, logging.EventUniverseStepped, events[1].name)
	assert.Equal(t, SourceFallback, events[1].payload["source"])
}

func TestGeneratedOutcomesLogGateScore(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	o := newOrchestrator(replies(labRescue), Deps{
		Interests: newTracker(t, "alice"),
		Logger:    zap.New(core),
	})
	out := o.CreateOrRefresh(context.Background(), "alice", "science", universe.Grades3to5)
	require.Equal(t, SourceGenerated, out.Source)

	stepper := newOrchestrator(replies(`{"metrics":{"engagement":0.3}}`), Deps{Logger: zap.New(core)})
	next := stepper.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonDay, nil, nil)
	require.Equal(t, SourceGenerated, next.Source)

	for _, msg := range []string{"universe created", "universe stepped"} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		fields := entries[0].ContextMap()
		assert.Contains(t, fields, "soft_score", msg)
		gateReason, _ := fields["gate"].(string)
		assert.True(t, strings.HasPrefix(gateReason, "passed gate"), "%s gate field %q", msg, gateReason)
	}
}

// #endregion step

// #region retry

func TestRetryUntilSuccess(t *testing.T) {
	gen := &script{replies: []scripted{
		{err: errNetwork},
		{text: "no json here"},
		{text: `{"title":"Third Time"}`},
	}}
	o := newOrchestrator(gen, Deps{}, func(c *Config) { c.MaxAttempts = 3 })

	out := o.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonDay, nil, nil)

	assert.Equal(t, SourceGenerated, out.Source)
	assert.Equal(t, "Third Time", out.State.Title)
	assert.Equal(t, 3, gen.calls())
}

func TestRetryExhausted(t *testing.T) {
	gen := failing(errNetwork)
	o := newOrchestrator(gen, Deps{}, func(c *Config) { c.MaxAttempts = 2 })

	out := o.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonDay, nil, nil)

	assert.Equal(t, SourceFallback, out.Source)
	assert.Equal(t, 2, gen.calls())
}

func TestRetrySkipsUnavailable(t *testing.T) {
	gen := failing(codec.ErrGeneratorUnavailable)
	o := newOrchestrator(gen, Deps{}, func(c *Config) { c.MaxAttempts = 5 })

	out := o.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonDay, nil, nil)

	assert.ErrorIs(t, out.Cause, codec.ErrGeneratorUnavailable)
	assert.Equal(t, 1, gen.calls())
}

func TestDefaultConfigSingleAttempt(t *testing.T) {
	gen := failing(errNetwork)
	o := newOrchestrator(gen, Deps{})
	o.SimulateStep(context.Background(), "alice", baseState(), universe.HorizonDay, nil, nil)
	assert.Equal(t, 1, gen.calls())
}

// #endregion retry

// #region advance

func TestAdvanceNoUniverse(t *testing.T) {
	o := newOrchestrator(replies(`{}`), Deps{Store: newStore(t)})
	_, err := o.Advance(context.Background(), "nobody", universe.HorizonDay, nil)
	assert.ErrorIs(t, err, ErrNoUniverse)

	o = newOrchestrator(replies(`{}`), Deps{})
	_, err = o.Advance(context.Background(), "nobody", universe.HorizonDay, nil)
	assert.ErrorIs(t, err, ErrNoUniverse)
}

func TestAdvanceDrainsSignalsAndSaves(t *testing.T) {
	store := newStore(t)
	buf := signals.NewBuffer()
	tel := &fakeTelemetry{}
	gen := replies(labRescue, `{"advanceDay":true}`)
	o := newOrchestrator(gen, Deps{
		Interests: newTracker(t, "alice"),
		Store:     store,
		Signals:   buf,
		Telemetry: tel,
	})

	created := o.CreateOrRefresh(context.Background(), "alice", "science", universe.Grades3to5)
	buf.Record("alice", signals.Signal{Tag: "volcanoes", Delta: 0.2})

	out, err := o.Advance(context.Background(), "alice", universe.HorizonDay, []string{"3-LS1-1"})
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, out.Source)
	assert.Equal(t, created.State.ID, out.State.ID)
	assert.Equal(t, 1, out.State.Time.DayIndex)

	assert.Empty(t, buf.Pending("alice"))
	require.Equal(t, 2, gen.calls())
	assert.Contains(t, gen.requests[1].Prompt, "volcanoes +0.20")

	live, ok := store.Load("alice")
	require.True(t, ok)
	assert.EqualValues(t, 2, live.Revision)
	assert.Equal(t, 1, live.State.Time.DayIndex)

	events := tel.all()
	require.Len(t, events, 2)
	assert.Equal(t, logging.EventUniverseStepped, events[1].name)
	assert.Equal(t, 1, events[1].payload["dayIndex"])
}

func TestAdvanceSerializesPerUser(t *testing.T) {
	store := newStore(t)
	var inFlight, maxInFlight atomic.Int32
	gen := codec.GeneratorFunc(func(ctx context.Context, req codec.Request) (codec.Payload, error) {
		if req.Kind == codec.KindBrief {
			return codec.Payload{Text: labRescue}, nil
		}
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return codec.Payload{Text: `{"advanceDay":true}`}, nil
	})
	o := newOrchestrator(gen, Deps{Interests: newTracker(t, "alice"), Store: store})
	o.CreateOrRefresh(context.Background(), "alice", "science", universe.Grades3to5)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Advance(context.Background(), "alice", universe.HorizonDay, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInFlight.Load())
	live, ok := store.Load("alice")
	require.True(t, ok)
	assert.Equal(t, workers, live.State.Time.DayIndex)
	assert.EqualValues(t, workers+1, live.Revision)
}

// #endregion advance

func TestDisplaySubject(t *testing.T) {
	assert.Equal(t, "Mathematics", displaySubject("mathematics"))
	assert.Equal(t, "Learning", displaySubject("  "))
	assert.True(t, strings.HasPrefix(displaySubject("éclairs"), "É"))
}
