package orchestrator

// #region imports
import (
	"errors"
	"time"

	"github.com/danielpatrickdp/adaptive-universe/internal/arc"
	"github.com/danielpatrickdp/adaptive-universe/internal/gate"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// #endregion

// #region source

// Source records where an outcome's state came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// #endregion

// #region outcome

// Outcome is the result of a create or step. State is always usable; when
// Source is SourceFallback, Cause holds the failure that forced the fallback.
type Outcome struct {
	State  universe.State
	Source Source
	Cause  error
}

// Fallback reports whether the state was produced by the local fallback.
func (o Outcome) Fallback() bool {
	return o.Source == SourceFallback
}

// #endregion

// #region errors

var (
	// ErrNoUniverse is returned by Advance when the user has no live arc.
	ErrNoUniverse = errors.New("no universe for user")

	// ErrRejected wraps gate vetoes.
	ErrRejected = errors.New("reply rejected")
)

// #endregion

// #region log-events

// Log entry event names written into universe state.
const (
	EventInitialized  = "universe_initialized"
	EventFallback     = "universe_fallback"
	EventDayContinued = "day_continued"
)

// #endregion

// #region config

// Config tunes generation behaviour.
type Config struct {
	MaxAttempts     int           // generation attempts before falling back
	GenerateTimeout time.Duration // per attempt; 0 means no timeout
	InterestCount   int           // top interests fed to the brief prompt
	Gate            gate.GateConfig
}

// DefaultConfig returns the defaults: one attempt, 30s timeout, top 3 interests.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     1,
		GenerateTimeout: 30 * time.Second,
		InterestCount:   3,
		Gate:            gate.DefaultGateConfig(),
	}
}

// #endregion

// #region collaborators

// InterestSource supplies a user's strongest interest tags.
type InterestSource interface {
	TopTags(userID string, k int) []string
}

// ArcStore is the persistence the orchestrator needs. *arc.Store satisfies it.
type ArcStore interface {
	Save(userID string, st universe.State) (int64, error)
	CompareAndSave(userID string, st universe.State, expected int64) (int64, error)
	Load(userID string) (arc.Arc, bool)
}

// Telemetry receives fire-and-forget events. *logging.Recorder satisfies it.
type Telemetry interface {
	LogEvent(name string, payload any)
}

// #endregion
