package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danielpatrickdp/adaptive-universe/internal/arc"
	"github.com/danielpatrickdp/adaptive-universe/internal/interest"
	"github.com/danielpatrickdp/adaptive-universe/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// Engine creates and advances universes.
type Engine interface {
	CreateOrRefresh(ctx context.Context, userID, subject string, band universe.GradeBand) orchestrator.Outcome
	Advance(ctx context.Context, userID string, horizon universe.Horizon, standards []string) (orchestrator.Outcome, error)
}

// ArcReader reads persisted universes.
type ArcReader interface {
	Load(userID string) (arc.Arc, bool)
	List() ([]arc.Arc, error)
}

// Interests reads and bumps interest profiles.
type Interests interface {
	Bump(userID, tag string, delta float64) interest.Profile
	TopTags(userID string, k int) []string
}

// Observer turns learner interactions into engagement signals.
type Observer interface {
	Observe(userID string, in signals.Interaction) (signals.Signal, bool)
}

type Server struct {
	engine    Engine
	arcs      ArcReader
	interests Interests
	observer  Observer
	mcp       *sdk.Server
}

func NewServer(engine Engine, arcs ArcReader, interests Interests, observer Observer, version string) *Server {
	s := &Server{
		engine:    engine,
		arcs:      arcs,
		interests: interests,
		observer:  observer,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "adaptive-universe",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
