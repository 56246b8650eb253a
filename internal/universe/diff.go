package universe

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// #region apply-diff
// ApplyDiff is a pure function that folds diff into old and returns the new state.
// Neither argument is modified. Time.Horizon is left for the caller to set.
func ApplyDiff(old State, diff Diff) State {
	next := old.Clone()

	if diff.Title != nil {
		next.Title = *diff.Title
	}
	if diff.Synopsis != nil {
		next.Synopsis = *diff.Synopsis
	}
	// Tags and props replace wholesale; contents are never unioned.
	if diff.Tags != nil {
		next.Tags = slices.Clone(diff.Tags)
	}
	if diff.Props != nil {
		next.Props = slices.Clone(diff.Props)
	}

	if diff.Metrics != nil {
		if diff.Metrics.Mastery != nil {
			next.Metrics.Mastery = maps.Clone(diff.Metrics.Mastery)
		}
		if diff.Metrics.Engagement != nil {
			next.Metrics.Engagement = *diff.Metrics.Engagement
		}
	}

	if diff.AdvanceDay {
		next.Time.DayIndex++
	}

	if len(diff.Log) > 0 {
		next.Log = append(next.Log, cloneLog(diff.Log)...)
	}

	return next
}

// #endregion apply-diff

// #region clone
// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	c.Tags = slices.Clone(s.Tags)
	c.Props = slices.Clone(s.Props)
	c.Metrics.Mastery = maps.Clone(s.Metrics.Mastery)
	c.Log = cloneLog(s.Log)
	return c
}

func cloneLog(entries []LogEntry) []LogEntry {
	if entries == nil {
		return nil
	}
	out := make([]LogEntry, len(entries))
	for i, e := range entries {
		out[i] = LogEntry{
			At:      e.At,
			Event:   e.Event,
			Payload: slices.Clone(e.Payload),
		}
	}
	return out
}

// #endregion clone

// #region helpers
// ClampEngagement restricts v to [-1, 1].
func ClampEngagement(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// NewLogEntry builds a log entry stamped with at. payload may be nil.
// Payloads that fail to marshal are dropped.
func NewLogEntry(at time.Time, event string, payload any) LogEntry {
	entry := LogEntry{At: at.UTC().Format(time.RFC3339), Event: event}
	if payload == nil {
		return entry
	}
	if b, err := json.Marshal(payload); err == nil {
		entry.Payload = b
	}
	return entry
}

// Ptr returns a pointer to v. Handy for building diffs.
func Ptr[T any](v T) *T {
	return &v
}

// #endregion helpers
