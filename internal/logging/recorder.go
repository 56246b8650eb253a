package logging

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// #region recorder
// Recorder is the fire-and-forget telemetry front end. LogEvent never blocks:
// events are queued for a single writer goroutine and dropped when the queue
// is full or the recorder is closed.
type Recorder struct {
	sink    Sink
	logger  *zap.Logger
	queue   chan Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	now     func() time.Time
}

// NewRecorder starts the writer goroutine. sink may be nil, in which case
// events only reach the zap logger.
func NewRecorder(sink Sink, logger *zap.Logger, buffer int) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	r := &Recorder{
		sink:   sink,
		logger: logger.Named("telemetry"),
		queue:  make(chan Event, buffer),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go r.run()
	return r
}

// #endregion recorder

// #region log-event
// LogEvent queues an event. payload is marshaled to JSON; unmarshalable
// payloads are recorded without a body.
func (r *Recorder) LogEvent(name string, payload any) {
	e := Event{Name: name, CreatedAt: r.now().UTC()}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			e.Payload = b
		} else {
			r.logger.Warn("drop event payload", zap.String("event", name), zap.Error(err))
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
		r.logger.Warn("telemetry queue full, event dropped", zap.String("event", name))
	}
}

// Dropped reports how many events were discarded.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// #endregion log-event

// #region run
func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		r.logger.Debug("event",
			zap.String("name", e.Name),
			zap.ByteString("payload", e.Payload))
		if r.sink == nil {
			continue
		}
		if err := r.sink.WriteEvent(e); err != nil {
			r.logger.Warn("write event failed", zap.String("event", e.Name), zap.Error(err))
		}
	}
}

// Close stops accepting events, drains the queue, and waits for the writer.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

// #endregion run
