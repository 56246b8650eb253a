package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// #region extract
// embeddedJSON matches the outermost object in free text, spanning newlines.
var embeddedJSON = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON returns the JSON object carried by p. Object wins over Text.
func extractJSON(p Payload) ([]byte, error) {
	if obj := bytes.TrimSpace(p.Object); len(obj) > 0 && !bytes.Equal(obj, []byte("null")) {
		return obj, nil
	}
	match := embeddedJSON.FindString(p.Text)
	if match == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformedReply)
	}
	return []byte(match), nil
}

// #endregion extract

// #region parse
// ParseReply decodes p into the variant expected for kind. Field types are
// checked strictly; any mismatch yields a ReplyMalformed.
func ParseReply(kind RequestKind, p Payload) Reply {
	raw, err := extractJSON(p)
	if err != nil {
		return malformed(err)
	}

	switch kind {
	case KindBrief:
		var b Brief
		if err := decodeStrict(raw, &b); err != nil {
			return malformed(err)
		}
		return Reply{Kind: ReplyBrief, Brief: &b}
	case KindStep:
		var d universe.Diff
		if err := decodeStrict(raw, &d); err != nil {
			return malformed(err)
		}
		return Reply{Kind: ReplyDiff, Diff: &d}
	default:
		return malformed(fmt.Errorf("%w: unknown request kind %q", ErrMalformedReply, kind))
	}
}

func decodeStrict(raw []byte, v any) error {
	// The top level must be an object.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return nil
}

func malformed(err error) Reply {
	return Reply{Kind: ReplyMalformed, Err: err}
}

// #endregion parse
