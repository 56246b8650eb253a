package codec

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// #region errors
var (
	// ErrGeneratorUnavailable is returned when no generation backend is configured.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
	// ErrMalformedReply marks a reply that carried no usable JSON or failed decoding.
	ErrMalformedReply = errors.New("malformed reply")
)

// #endregion errors

// #region request
// RequestKind says which schema the caller expects back.
type RequestKind string

const (
	KindBrief RequestKind = "brief"
	KindStep  RequestKind = "step"
)

// Request is one call to the content generator.
type Request struct {
	Kind       RequestKind
	Prompt     string
	Subject    string
	GradeLevel int
	Interests  []string
}

// Payload is the raw generator response. Object holds a pre-parsed JSON
// object when the backend returns one; otherwise Text carries free text that
// may embed JSON.
type Payload struct {
	Object json.RawMessage
	Text   string
}

// Generator is the black-box content generation collaborator.
type Generator interface {
	Generate(ctx context.Context, req Request) (Payload, error)
}

// #endregion request

// #region reply
// ReplyKind tags the variant carried by a Reply.
type ReplyKind string

const (
	ReplyBrief     ReplyKind = "brief"
	ReplyDiff      ReplyKind = "diff"
	ReplyMalformed ReplyKind = "malformed"
)

// Brief is the schema of a universe-creation reply.
type Brief struct {
	Title    string   `json:"title"`
	Synopsis string   `json:"synopsis"`
	Props    []string `json:"props"`
	Tags     []string `json:"tags"`
}

// Reply is a parsed generator response: exactly one of Brief or Diff is set
// unless Kind is ReplyMalformed, in which case Err explains why.
type Reply struct {
	Kind  ReplyKind
	Brief *Brief
	Diff  *universe.Diff
	Err   error
}

// #endregion reply

// #region generator-func
// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (Payload, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Payload, error) {
	return f(ctx, req)
}

// #endregion generator-func
