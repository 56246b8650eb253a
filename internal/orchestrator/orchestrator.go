package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-universe/internal/codec"
	"github.com/danielpatrickdp/adaptive-universe/internal/gate"
	"github.com/danielpatrickdp/adaptive-universe/internal/logging"
	"github.com/danielpatrickdp/adaptive-universe/internal/prompt"
	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// #endregion

const tracerName = "github.com/danielpatrickdp/adaptive-universe/internal/orchestrator"

// #region orchestrator-struct

// Orchestrator creates and advances learning universes. It is the only
// component that talks to the generator; every failure there is absorbed
// into a deterministic fallback.
type Orchestrator struct {
	gen       codec.Generator
	interests InterestSource
	store     ArcStore
	pending   *signals.Buffer
	telemetry Telemetry
	gate      *gate.Gate
	config    Config
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu    sync.Mutex
	users map[string]*semaphore.Weighted
}

// Deps are the orchestrator's collaborators. Only Interests is required;
// a nil Generator always falls back, and nil Store, Signals, or Telemetry
// disable persistence, signal draining, and events respectively.
type Deps struct {
	Generator codec.Generator
	Interests InterestSource
	Store     ArcStore
	Signals   *signals.Buffer
	Telemetry Telemetry
	Logger    *zap.Logger
	Tracing   trace.TracerProvider // defaults to the global provider
}

// #endregion

// #region constructor

// New wires an orchestrator.
func New(deps Deps, config Config) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := deps.Tracing
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Orchestrator{
		gen:       deps.Generator,
		interests: deps.Interests,
		store:     deps.Store,
		pending:   deps.Signals,
		telemetry: deps.Telemetry,
		gate:      gate.NewGate(config.Gate),
		config:    config,
		logger:    logger.Named("orchestrator"),
		tracer:    tp.Tracer(tracerName),
		now:       time.Now,
		users:     make(map[string]*semaphore.Weighted),
	}
}

// #endregion

// #region create

// CreateOrRefresh builds a fresh universe for userID, superseding any live
// one. It never fails: generator, parse, or gate failures produce a
// fallback universe whose log records the cause. A fallback forced by a
// cancelled wait for the user's slot is reported but not saved.
func (o *Orchestrator) CreateOrRefresh(ctx context.Context, userID, subject string, band universe.GradeBand) Outcome {
	ctx, span := o.tracer.Start(ctx, "universe.create", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("universe.subject", subject),
		attribute.String("universe.grade_band", string(band)),
	))
	defer span.End()

	interests := o.topInterests(userID)

	release, err := o.acquire(ctx, userID)
	if err != nil {
		out := o.fallbackCreate(subject, band, interests, err)
		o.emitCreated(userID, subject, band, out)
		o.finishSpan(span, out)
		return out
	}
	defer release()

	out := o.create(ctx, subject, band, interests)
	if o.store != nil {
		if _, err := o.store.Save(userID, out.State); err != nil {
			o.logger.Warn("save arc failed", zap.String("user", userID), zap.Error(err))
		}
	}
	o.emitCreated(userID, subject, band, out)
	o.finishSpan(span, out)
	return out
}

func (o *Orchestrator) create(ctx context.Context, subject string, band universe.GradeBand, interests []string) Outcome {
	if !band.Valid() {
		return o.fallbackCreate(subject, band, interests, fmt.Errorf("%w: unknown grade band %q", ErrRejected, band))
	}

	req := codec.Request{
		Kind:       codec.KindBrief,
		Prompt:     prompt.Brief(subject, band, interests),
		Subject:    subject,
		GradeLevel: band.GradeLevel(),
		Interests:  interests,
	}
	var decision gate.GateDecision
	reply, err := o.generate(ctx, req, func(r codec.Reply) error {
		decision = o.gate.EvaluateBrief(*r.Brief)
		return gateErr(decision)
	})
	if err != nil {
		return o.fallbackCreate(subject, band, interests, err)
	}

	b := reply.Brief
	tags := b.Tags
	if len(tags) == 0 {
		tags = interests
	}
	st := universe.State{
		ID:        uuid.New().String(),
		Subject:   subject,
		GradeBand: band,
		Title:     b.Title,
		Synopsis:  b.Synopsis,
		Tags:      nonNil(tags),
		Props:     nonNil(b.Props),
		Time:      universe.TimeState{DayIndex: 0, Horizon: universe.HorizonDay},
		Metrics:   universe.Metrics{Mastery: map[string]float64{}, Engagement: 0},
		Log: []universe.LogEntry{
			universe.NewLogEntry(o.now(), EventInitialized, map[string]any{
				"source":    SourceGenerated,
				"interests": nonNil(interests),
			}),
		},
	}
	o.logger.Info("universe created",
		zap.String("universe", st.ID),
		zap.String("subject", subject),
		zap.String("title", st.Title),
		zap.Float32("soft_score", decision.SoftScore),
		zap.String("gate", decision.Reason))
	return Outcome{State: st, Source: SourceGenerated}
}

// #endregion

// #region step

// SimulateStep advances st by one step at the given horizon and persists the
// result for userID. It never fails: on any generator, parse, or gate
// failure a minimal continuation diff is applied instead. As with
// CreateOrRefresh, a cancelled wait for the user's slot is reported unsaved.
func (o *Orchestrator) SimulateStep(ctx context.Context, userID string, st universe.State, horizon universe.Horizon, standards []string, sigs []signals.Signal) Outcome {
	ctx, span := o.tracer.Start(ctx, "universe.step", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("universe.id", st.ID),
		attribute.String("universe.horizon", string(horizon)),
	))
	defer span.End()

	release, err := o.acquire(ctx, userID)
	if err != nil {
		out := o.fallbackStep(st, horizon, err)
		o.emitStepped(userID, horizon, out)
		o.finishSpan(span, out)
		return out
	}
	defer release()

	out := o.step(ctx, st, horizon, standards, sigs)
	if o.store != nil {
		if _, err := o.store.Save(userID, out.State); err != nil {
			o.logger.Warn("save arc failed", zap.String("user", userID), zap.Error(err))
		}
	}
	o.emitStepped(userID, horizon, out)
	o.finishSpan(span, out)
	return out
}

// Advance steps the user's live arc, feeding it the signals recorded since the
// last step, and saves the result only if nobody else saved in between.
// It returns ErrNoUniverse when the user has no arc; any other failure is
// absorbed like SimulateStep.
func (o *Orchestrator) Advance(ctx context.Context, userID string, horizon universe.Horizon, standards []string) (Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "universe.step", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("universe.horizon", string(horizon)),
	))
	defer span.End()

	if o.store == nil {
		return Outcome{}, ErrNoUniverse
	}

	release, err := o.acquire(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return Outcome{}, err
	}
	defer release()

	live, ok := o.store.Load(userID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNoUniverse, userID)
	}
	span.SetAttributes(attribute.String("universe.id", live.State.ID))

	var sigs []signals.Signal
	if o.pending != nil {
		sigs = o.pending.Drain(userID)
	}

	out := o.step(ctx, live.State, horizon, standards, sigs)
	if _, err := o.store.CompareAndSave(userID, out.State, live.Revision); err != nil {
		o.logger.Warn("save arc failed",
			zap.String("user", userID),
			zap.Int64("revision", live.Revision),
			zap.Error(err))
	}
	o.emitStepped(userID, horizon, out)
	o.finishSpan(span, out)
	return out, nil
}

func (o *Orchestrator) step(ctx context.Context, st universe.State, horizon universe.Horizon, standards []string, sigs []signals.Signal) Outcome {
	if !horizon.Valid() {
		return o.fallbackStep(st, horizon, fmt.Errorf("%w: unknown horizon %q", ErrRejected, horizon))
	}

	req := codec.Request{
		Kind:       codec.KindStep,
		Prompt:     prompt.Step(st, horizon, standards, sigs),
		Subject:    st.Subject,
		GradeLevel: st.GradeBand.GradeLevel(),
		Interests:  st.Tags,
	}
	var decision gate.GateDecision
	reply, err := o.generate(ctx, req, func(r codec.Reply) error {
		decision = o.gate.EvaluateDiff(st, *r.Diff)
		return gateErr(decision)
	})
	if err != nil {
		return o.fallbackStep(st, horizon, err)
	}

	next := universe.ApplyDiff(st, *reply.Diff)
	next.Time.Horizon = horizon
	o.logger.Debug("universe stepped",
		zap.String("universe", next.ID),
		zap.String("horizon", string(horizon)),
		zap.Int("day", next.Time.DayIndex),
		zap.Float32("soft_score", decision.SoftScore),
		zap.String("gate", decision.Reason))
	return Outcome{State: next, Source: SourceGenerated}
}

// #endregion

// #region locking

// acquire serializes mutations per user. The returned func releases the slot.
func (o *Orchestrator) acquire(ctx context.Context, userID string) (func(), error) {
	o.mu.Lock()
	sem, ok := o.users[userID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		o.users[userID] = sem
	}
	o.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire user %s: %w", userID, err)
	}
	return func() { sem.Release(1) }, nil
}

// #endregion

// #region helpers

func (o *Orchestrator) topInterests(userID string) []string {
	if o.interests == nil {
		return nil
	}
	n := o.config.InterestCount
	if n <= 0 {
		n = 3
	}
	return o.interests.TopTags(userID, n)
}

func (o *Orchestrator) emit(name string, payload map[string]any) {
	if o.telemetry == nil {
		return
	}
	o.telemetry.LogEvent(name, payload)
}

func (o *Orchestrator) emitCreated(userID, subject string, band universe.GradeBand, out Outcome) {
	o.emit(logging.EventUniverseCreated, map[string]any{
		"userId":     userID,
		"universeId": out.State.ID,
		"subject":    subject,
		"gradeBand":  band,
		"source":     out.Source,
	})
}

func (o *Orchestrator) emitStepped(userID string, horizon universe.Horizon, out Outcome) {
	o.emit(logging.EventUniverseStepped, map[string]any{
		"userId":     userID,
		"universeId": out.State.ID,
		"horizon":    horizon,
		"dayIndex":   out.State.Time.DayIndex,
		"source":     out.Source,
	})
}

func sourceAttr(s Source) attribute.KeyValue {
	return attribute.String("universe.source", string(s))
}

func (o *Orchestrator) finishSpan(span trace.Span, out Outcome) {
	span.SetAttributes(sourceAttr(out.Source))
	if out.Cause != nil {
		span.RecordError(out.Cause)
		span.SetStatus(codes.Error, out.Cause.Error())
	}
}

func gateErr(d gate.GateDecision) error {
	if !d.Vetoed {
		return nil
	}
	reasons := make([]string, len(d.VetoSignals))
	for i, v := range d.VetoSignals {
		reasons[i] = v.Reason
	}
	return fmt.Errorf("%w: %s", ErrRejected, strings.Join(reasons, "; "))
}

func nonNil(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// #endregion
