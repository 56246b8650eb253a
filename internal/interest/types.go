package interest

import (
	"errors"
	"time"
)

// #region profile
// Profile is one user's interest frequency table.
// Counts are never decayed; a profile is created lazily on the first bump.
type Profile struct {
	Counts    map[string]float64 `json:"counts"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// #endregion profile

// #region repository
// ErrProfileNotFound is returned by repositories when no profile exists for a user.
var ErrProfileNotFound = errors.New("interest profile not found")

// Repository persists profiles keyed by user identity.
type Repository interface {
	Load(userID string) (Profile, error)
	Save(userID string, p Profile) error
}

// #endregion repository
