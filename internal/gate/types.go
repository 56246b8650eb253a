package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoMissingField VetoType = "missing_field"
	VetoOutOfRange   VetoType = "out_of_range"
	VetoOversized    VetoType = "oversized"
	VetoBadLogEntry  VetoType = "bad_log_entry"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds limits for generated content.
type GateConfig struct {
	MaxTags     int // tags per brief or diff
	MaxProps    int // props per brief or diff
	MaxLogBatch int // log entries appended by one diff
}

// DefaultGateConfig returns sensible defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxTags:     8,
		MaxProps:    8,
		MaxLogBatch: 16,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string // "commit" | "reject"
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal // non-empty if vetoed
	SoftScore   float32      // 0-1 quality estimate (for logging)
}

// #endregion gate-decision
