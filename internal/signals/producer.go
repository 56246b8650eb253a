package signals

import (
	"slices"
	"strings"
	"sync"
)

// #region buffer

// Buffer accumulates engagement signals per user until the next step drains them.
// It is safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	pending map[string][]Signal
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{pending: make(map[string][]Signal)}
}

// Record appends a signal for userID.
func (b *Buffer) Record(userID string, s Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[userID] = append(b.pending[userID], s)
}

// Pending returns a copy of the signals recorded for userID since the last drain.
func (b *Buffer) Pending(userID string) []Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.pending[userID])
}

// Drain returns and clears the signals recorded for userID.
func (b *Buffer) Drain(userID string) []Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending[userID]
	delete(b.pending, userID)
	if out == nil {
		return []Signal{}
	}
	return out
}

// #endregion buffer

// #region producer

// Producer turns UI interactions into engagement signals and interest bumps.
type Producer struct {
	buffer  *Buffer
	tracker InterestBumper
	config  ProducerConfig
}

// NewProducer creates a Producer. tracker may be nil (interests are not bumped).
func NewProducer(buffer *Buffer, tracker InterestBumper, config ProducerConfig) *Producer {
	return &Producer{buffer: buffer, tracker: tracker, config: config}
}

// Observe records one interaction. Positive interactions also bump the
// user's interest count for the tag. Unknown kinds and blank tags are ignored.
func (p *Producer) Observe(userID string, in Interaction) (Signal, bool) {
	tag := normalizeTag(in.Tag)
	if tag == "" {
		return Signal{}, false
	}
	delta, ok := p.config.Weights[in.Kind]
	if !ok {
		return Signal{}, false
	}

	sig := Signal{Tag: tag, Delta: delta}
	p.buffer.Record(userID, sig)
	if p.tracker != nil && delta > 0 {
		p.tracker.Bump(userID, tag, 1)
	}
	return sig, true
}

// #endregion producer

// #region helpers

// normalizeTag lowercases and trims a tag.
func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// #endregion helpers
