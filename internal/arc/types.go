package arc

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// #region errors
var (
	// ErrArcNotFound is returned when a user has no live arc.
	ErrArcNotFound = errors.New("arc not found")
	// ErrRevisionConflict is returned by CompareAndSave when another writer got there first.
	ErrRevisionConflict = errors.New("arc revision conflict")
)

// #endregion errors

// #region arc
// Arc is the live universe snapshot for one user.
type Arc struct {
	UserID    string
	VersionID string
	Revision  int64 // bumps by one on every save
	State     universe.State
	UpdatedAt time.Time
}

// #endregion arc

// #region version
// Version is one stored snapshot, live or superseded.
type Version struct {
	VersionID string
	ParentID  string
	UserID    string
	State     universe.State
	CreatedAt time.Time
}

// #endregion version
