package logging

import (
	"encoding/json"
	"time"
)

// #region event
// Event is one telemetry record emitted after a successful create or step.
type Event struct {
	Name      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Event names emitted by the orchestrator.
const (
	EventUniverseCreated = "universe_created"
	EventUniverseStepped = "universe_stepped"
)

// #endregion event

// #region sink
// Sink stores telemetry events.
type Sink interface {
	WriteEvent(e Event) error
}

// #endregion sink
