package universe

import "encoding/json"

// #region horizon
// Horizon is the granularity at which a simulation step advances the narrative.
type Horizon string

const (
	HorizonDay   Horizon = "day"
	HorizonWeek  Horizon = "week"
	HorizonMonth Horizon = "month"
	HorizonYear  Horizon = "year"
)

// Valid reports whether h is one of the four known horizons.
func (h Horizon) Valid() bool {
	switch h {
	case HorizonDay, HorizonWeek, HorizonMonth, HorizonYear:
		return true
	}
	return false
}

// #endregion horizon

// #region grade-band
// GradeBand classifies the learner's grade range.
type GradeBand string

const (
	Grades3to5  GradeBand = "3-5"
	Grades6to8  GradeBand = "6-8"
	Grades9to12 GradeBand = "9-12"
)

// Valid reports whether b is a supported grade band.
func (b GradeBand) Valid() bool {
	switch b {
	case Grades3to5, Grades6to8, Grades9to12:
		return true
	}
	return false
}

// GradeLevel returns a representative grade for the band (its midpoint).
// Unknown bands map to 0.
func (b GradeBand) GradeLevel() int {
	switch b {
	case Grades3to5:
		return 4
	case Grades6to8:
		return 7
	case Grades9to12:
		return 10
	}
	return 0
}

// #endregion grade-band

// #region state
// State is one user's evolving narrative record.
type State struct {
	ID        string     `json:"id"`
	Subject   string     `json:"subject"`
	GradeBand GradeBand  `json:"gradeBand"`
	Title     string     `json:"title"`
	Synopsis  string     `json:"synopsis"`
	Tags      []string   `json:"tags"`
	Props     []string   `json:"props"`
	Time      TimeState  `json:"time"`
	Metrics   Metrics    `json:"metrics"`
	Log       []LogEntry `json:"log"`
}

// TimeState tracks narrative time. DayIndex never decreases.
type TimeState struct {
	DayIndex int     `json:"dayIndex"`
	Horizon  Horizon `json:"horizon"`
}

// Metrics holds per-standard mastery in [0,1] and engagement in [-1,1].
type Metrics struct {
	Mastery    map[string]float64 `json:"mastery"`
	Engagement float64            `json:"engagement"`
}

// LogEntry is one append-only narrative event.
type LogEntry struct {
	At      string          `json:"t"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// #endregion state

// #region diff
// Diff is a partial update folded into a State exactly once.
// A nil field means "absent" and leaves the state untouched.
type Diff struct {
	Title      *string       `json:"title,omitempty"`
	Synopsis   *string       `json:"synopsis,omitempty"`
	Tags       []string      `json:"tags,omitempty"`
	Props      []string      `json:"props,omitempty"`
	Metrics    *MetricsPatch `json:"metrics,omitempty"`
	Log        []LogEntry    `json:"log,omitempty"`
	AdvanceDay bool          `json:"advanceDay,omitempty"`
}

// MetricsPatch replaces each present key of Metrics wholesale.
// A non-nil Mastery replaces the whole mastery map.
type MetricsPatch struct {
	Mastery    map[string]float64 `json:"mastery,omitempty"`
	Engagement *float64           `json:"engagement,omitempty"`
}

// #endregion diff
