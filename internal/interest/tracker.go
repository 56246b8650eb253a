package interest

import (
	"errors"
	"maps"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// #region tracker
// Tracker accumulates per-user interest tags from UI interactions.
// No operation fails: repository errors are logged and read as empty profiles.
type Tracker struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewTracker creates a Tracker over repo. logger may be nil.
func NewTracker(repo Repository, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		repo:   repo,
		logger: logger.Named("interest"),
		now:    time.Now,
		users:  make(map[string]*sync.Mutex),
	}
}

// #endregion tracker

// #region bump
// Bump adds delta to the count for tag and writes the whole profile through
// to the repository. delta is not validated.
func (t *Tracker) Bump(userID, tag string, delta float64) Profile {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p := t.Profile(userID)
	if p.Counts == nil {
		p.Counts = make(map[string]float64)
	}
	p.Counts[tag] += delta
	p.UpdatedAt = t.now().UTC()

	if err := t.repo.Save(userID, p); err != nil {
		t.logger.Warn("save profile failed",
			zap.String("user", userID), zap.String("tag", tag), zap.Error(err))
	}
	return p
}

// userLock returns the mutex serializing read-modify-write for userID.
func (t *Tracker) userLock(userID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.users[userID]
	if !ok {
		l = &sync.Mutex{}
		t.users[userID] = l
	}
	return l
}

// #endregion bump

// #region queries
// Profile returns a copy of the stored profile, or an empty one.
func (t *Tracker) Profile(userID string) Profile {
	p, err := t.repo.Load(userID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			t.logger.Warn("load profile failed", zap.String("user", userID), zap.Error(err))
		}
		return Profile{Counts: map[string]float64{}}
	}
	p.Counts = maps.Clone(p.Counts)
	if p.Counts == nil {
		p.Counts = map[string]float64{}
	}
	return p
}

// TopTags returns up to k tags by descending count. Equal counts are ordered
// lexicographically so results are reproducible.
func (t *Tracker) TopTags(userID string, k int) []string {
	if k <= 0 {
		return []string{}
	}
	p := t.Profile(userID)
	tags := make([]string, 0, len(p.Counts))
	for tag := range p.Counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		ci, cj := p.Counts[tags[i]], p.Counts[tags[j]]
		if ci != cj {
			return ci > cj
		}
		return tags[i] < tags[j]
	})
	if len(tags) > k {
		tags = tags[:k]
	}
	return tags
}

// Score returns the count for tag, or 0 if it was never bumped.
func (t *Tracker) Score(userID, tag string) float64 {
	return t.Profile(userID).Counts[tag]
}

// #endregion queries
