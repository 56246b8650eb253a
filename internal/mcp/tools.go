package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danielpatrickdp/adaptive-universe/internal/arc"
	"github.com/danielpatrickdp/adaptive-universe/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

type CreateUniverseInput struct {
	UserID    string `json:"user_id" jsonschema:"learner identity"`
	Subject   string `json:"subject" jsonschema:"curriculum subject, e.g. mathematics"`
	GradeBand string `json:"grade_band" jsonschema:"one of 3-5, 6-8, 9-12"`
}

type SimulateStepInput struct {
	UserID    string   `json:"user_id" jsonschema:"learner identity"`
	Horizon   string   `json:"horizon,omitempty" jsonschema:"day, week, month, or year (default day)"`
	Standards []string `json:"standards,omitempty" jsonschema:"curriculum standards targeted by this step"`
}

type GetArcInput struct {
	UserID string `json:"user_id" jsonschema:"learner identity"`
}

type ListArcsInput struct{}

type BumpInterestInput struct {
	UserID string  `json:"user_id" jsonschema:"learner identity"`
	Tag    string  `json:"tag" jsonschema:"interest tag"`
	Delta  float64 `json:"delta,omitempty" jsonschema:"amount to add (default 1)"`
}

type TopInterestsInput struct {
	UserID string `json:"user_id" jsonschema:"learner identity"`
	K      int    `json:"k,omitempty" jsonschema:"number of tags (default 3)"`
}

type RecordInteractionInput struct {
	UserID string `json:"user_id" jsonschema:"learner identity"`
	Tag    string `json:"tag" jsonschema:"interest tag the interaction concerned"`
	Kind   string `json:"kind" jsonschema:"liked, completed, skipped, or revisited"`
}

type LogEntryOutput struct {
	At      string `json:"t"`
	Event   string `json:"event"`
	Payload string `json:"payload,omitempty"`
}

type UniverseOutput struct {
	UserID     string             `json:"user_id"`
	Source     string             `json:"source,omitempty"`
	Cause      string             `json:"cause,omitempty"`
	Revision   int64              `json:"revision,omitempty"`
	ID         string             `json:"id"`
	Subject    string             `json:"subject"`
	GradeBand  string             `json:"grade_band"`
	Title      string             `json:"title"`
	Synopsis   string             `json:"synopsis"`
	Tags       []string           `json:"tags"`
	Props      []string           `json:"props"`
	DayIndex   int                `json:"day_index"`
	Horizon    string             `json:"horizon"`
	Mastery    map[string]float64 `json:"mastery"`
	Engagement float64            `json:"engagement"`
	Log        []LogEntryOutput   `json:"log"`
}

type ArcSummaryOutput struct {
	UserID   string `json:"user_id"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subject  string `json:"subject"`
	DayIndex int    `json:"day_index"`
	Revision int64  `json:"revision"`
}

type ListArcsOutput struct {
	Arcs []ArcSummaryOutput `json:"arcs"`
}

type InterestsOutput struct {
	UserID string   `json:"user_id"`
	Tags   []string `json:"tags"`
}

type BumpInterestOutput struct {
	UserID string             `json:"user_id"`
	Counts map[string]float64 `json:"counts"`
}

type RecordInteractionOutput struct {
	Recorded bool    `json:"recorded"`
	Tag      string  `json:"tag,omitempty"`
	Delta    float64 `json:"delta,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "create_universe",
		Description: "Create or refresh a learner's universe for a subject and grade band",
	}, s.handleCreateUniverse)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "simulate_step",
		Description: "Advance a learner's live universe by one step",
	}, s.handleSimulateStep)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_arc",
		Description: "Return a learner's live universe",
	}, s.handleGetArc)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_arcs",
		Description: "List every live universe",
	}, s.handleListArcs)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "bump_interest",
		Description: "Add to a learner's interest count for a tag",
	}, s.handleBumpInterest)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "top_interests",
		Description: "Return a learner's strongest interest tags",
	}, s.handleTopInterests)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "record_interaction",
		Description: "Record a learner interaction as an engagement signal for the next step",
	}, s.handleRecordInteraction)
}

func (s *Server) handleCreateUniverse(ctx context.Context, req *sdk.CallToolRequest, input CreateUniverseInput) (*sdk.CallToolResult, UniverseOutput, error) {
	if input.UserID == "" {
		return nil, UniverseOutput{}, fmt.Errorf("user_id is required")
	}
	if input.Subject == "" {
		return nil, UniverseOutput{}, fmt.Errorf("subject is required")
	}
	band := universe.GradeBand(input.GradeBand)
	if !band.Valid() {
		return nil, UniverseOutput{}, fmt.Errorf("unsupported grade_band: %q", input.GradeBand)
	}
	out := s.engine.CreateOrRefresh(ctx, input.UserID, input.Subject, band)
	return nil, outcomeOutput(input.UserID, out), nil
}

func (s *Server) handleSimulateStep(ctx context.Context, req *sdk.CallToolRequest, input SimulateStepInput) (*sdk.CallToolResult, UniverseOutput, error) {
	if input.UserID == "" {
		return nil, UniverseOutput{}, fmt.Errorf("user_id is required")
	}
	horizon := universe.Horizon(input.Horizon)
	if horizon == "" {
		horizon = universe.HorizonDay
	}
	if !horizon.Valid() {
		return nil, UniverseOutput{}, fmt.Errorf("unsupported horizon: %q", input.Horizon)
	}
	out, err := s.engine.Advance(ctx, input.UserID, horizon, input.Standards)
	if err != nil {
		return nil, UniverseOutput{}, err
	}
	return nil, outcomeOutput(input.UserID, out), nil
}

func (s *Server) handleGetArc(ctx context.Context, req *sdk.CallToolRequest, input GetArcInput) (*sdk.CallToolResult, UniverseOutput, error) {
	if input.UserID == "" {
		return nil, UniverseOutput{}, fmt.Errorf("user_id is required")
	}
	a, ok := s.arcs.Load(input.UserID)
	if !ok {
		return nil, UniverseOutput{}, fmt.Errorf("no universe for user %s", input.UserID)
	}
	output := universeOutput(input.UserID, a.State)
	output.Revision = a.Revision
	return nil, output, nil
}

func (s *Server) handleListArcs(ctx context.Context, req *sdk.CallToolRequest, input ListArcsInput) (*sdk.CallToolResult, ListArcsOutput, error) {
	arcs, err := s.arcs.List()
	if err != nil {
		return nil, ListArcsOutput{}, err
	}
	output := make([]ArcSummaryOutput, 0, len(arcs))
	for _, a := range arcs {
		output = append(output, arcSummaryOutput(a))
	}
	return nil, ListArcsOutput{Arcs: output}, nil
}

func (s *Server) handleBumpInterest(ctx context.Context, req *sdk.CallToolRequest, input BumpInterestInput) (*sdk.CallToolResult, BumpInterestOutput, error) {
	if input.UserID == "" || input.Tag == "" {
		return nil, BumpInterestOutput{}, fmt.Errorf("user_id and tag are required")
	}
	delta := input.Delta
	if delta == 0 {
		delta = 1
	}
	p := s.interests.Bump(input.UserID, input.Tag, delta)
	counts := p.Counts
	if counts == nil {
		counts = map[string]float64{}
	}
	return nil, BumpInterestOutput{UserID: input.UserID, Counts: counts}, nil
}

func (s *Server) handleTopInterests(ctx context.Context, req *sdk.CallToolRequest, input TopInterestsInput) (*sdk.CallToolResult, InterestsOutput, error) {
	if input.UserID == "" {
		return nil, InterestsOutput{}, fmt.Errorf("user_id is required")
	}
	k := input.K
	if k == 0 {
		k = 3
	}
	return nil, InterestsOutput{UserID: input.UserID, Tags: nonNil(s.interests.TopTags(input.UserID, k))}, nil
}

func (s *Server) handleRecordInteraction(ctx context.Context, req *sdk.CallToolRequest, input RecordInteractionInput) (*sdk.CallToolResult, RecordInteractionOutput, error) {
	if input.UserID == "" || input.Tag == "" {
		return nil, RecordInteractionOutput{}, fmt.Errorf("user_id and tag are required")
	}
	sig, ok := s.observer.Observe(input.UserID, signals.Interaction{
		Tag:  input.Tag,
		Kind: signals.InteractionKind(input.Kind),
	})
	if !ok {
		return nil, RecordInteractionOutput{}, nil
	}
	return nil, RecordInteractionOutput{Recorded: true, Tag: sig.Tag, Delta: sig.Delta}, nil
}

func outcomeOutput(userID string, out orchestrator.Outcome) UniverseOutput {
	output := universeOutput(userID, out.State)
	output.Source = string(out.Source)
	if out.Cause != nil {
		output.Cause = out.Cause.Error()
	}
	return output
}

func universeOutput(userID string, st universe.State) UniverseOutput {
	mastery := st.Metrics.Mastery
	if mastery == nil {
		mastery = map[string]float64{}
	}
	log := make([]LogEntryOutput, 0, len(st.Log))
	for _, e := range st.Log {
		log = append(log, LogEntryOutput{At: e.At, Event: e.Event, Payload: string(e.Payload)})
	}
	return UniverseOutput{
		UserID:     userID,
		ID:         st.ID,
		Subject:    st.Subject,
		GradeBand:  string(st.GradeBand),
		Title:      st.Title,
		Synopsis:   st.Synopsis,
		Tags:       nonNil(st.Tags),
		Props:      nonNil(st.Props),
		DayIndex:   st.Time.DayIndex,
		Horizon:    string(st.Time.Horizon),
		Mastery:    mastery,
		Engagement: st.Metrics.Engagement,
		Log:        log,
	}
}

func arcSummaryOutput(a arc.Arc) ArcSummaryOutput {
	return ArcSummaryOutput{
		UserID:   a.UserID,
		ID:       a.State.ID,
		Title:    a.State.Title,
		Subject:  a.State.Subject,
		DayIndex: a.State.Time.DayIndex,
		Revision: a.Revision,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
