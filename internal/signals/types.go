package signals

import "github.com/danielpatrickdp/adaptive-universe/internal/interest"

// #region signal

// Signal is one engagement observation accumulated between steps.
type Signal struct {
	Tag   string  `json:"tag"`
	Delta float64 `json:"delta"`
}

// #endregion signal

// #region interaction

// InteractionKind names a UI interaction that carries engagement.
type InteractionKind string

const (
	InteractionLiked     InteractionKind = "liked"
	InteractionCompleted InteractionKind = "completed"
	InteractionSkipped   InteractionKind = "skipped"
	InteractionRevisited InteractionKind = "revisited"
)

// Interaction is a raw UI event tagged with a topic.
type Interaction struct {
	Tag  string
	Kind InteractionKind
}

// #endregion interaction

// #region config

// InterestBumper is the slice of the interest tracker the producer needs.
type InterestBumper interface {
	Bump(userID, tag string, delta float64) interest.Profile
}

// ProducerConfig maps interaction kinds to engagement deltas.
type ProducerConfig struct {
	Weights map[InteractionKind]float64
}

// DefaultProducerConfig returns sensible defaults.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Weights: map[InteractionKind]float64{
			InteractionLiked:     0.2,
			InteractionCompleted: 0.1,
			InteractionRevisited: 0.05,
			InteractionSkipped:   -0.1,
		},
	}
}

// #endregion config
