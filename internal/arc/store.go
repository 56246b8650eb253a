package arc

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS arc_versions (
	version_id   TEXT PRIMARY KEY,
	parent_id    TEXT,
	user_id      TEXT NOT NULL,
	universe_id  TEXT NOT NULL,
	state_json   TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_arc_versions_user
ON arc_versions(user_id, created_at);

CREATE TABLE IF NOT EXISTS active_arcs (
	user_id      TEXT PRIMARY KEY,
	version_id   TEXT NOT NULL,
	revision     INTEGER NOT NULL,
	updated_at   TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES arc_versions(version_id)
);
`

// #endregion schema

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region store-struct
// Store persists one live universe per user in SQLite and keeps every
// superseded snapshot as history.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection serializes writers sharing this handle (interest, logging).
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("arc"), now: time.Now}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (interest, logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region save
// Save overwrites the user's live arc with st (last write wins) and records
// the snapshot in history. It returns the new revision.
func (s *Store) Save(userID string, st universe.State) (int64, error) {
	return s.save(userID, st, -1)
}

// CompareAndSave saves only if the live revision still equals expected.
// Use 0 for "no arc yet".
func (s *Store) CompareAndSave(userID string, st universe.State, expected int64) (int64, error) {
	if expected < 0 {
		return 0, fmt.Errorf("negative expected revision %d", expected)
	}
	return s.save(userID, st, expected)
}

func (s *Store) save(userID string, st universe.State, expected int64) (int64, error) {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return 0, fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentID sql.NullString
	var revision int64
	err = tx.QueryRow(
		`SELECT version_id, revision FROM active_arcs WHERE user_id = ?`, userID,
	).Scan(&parentID, &revision)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read active: %w", err)
	}
	if expected >= 0 && revision != expected {
		return 0, fmt.Errorf("%w: user %s at revision %d, expected %d", ErrRevisionConflict, userID, revision, expected)
	}

	versionID := uuid.New().String()
	now := s.now().UTC().Format(timeLayout)

	var parentPtr interface{}
	if parentID.Valid {
		parentPtr = parentID.String
	}

	_, err = tx.Exec(
		`INSERT INTO arc_versions (version_id, parent_id, user_id, universe_id, state_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		versionID, parentPtr, userID, st.ID, string(stateJSON), now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}

	next := revision + 1
	_, err = tx.Exec(
		`INSERT INTO active_arcs (user_id, version_id, revision, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET version_id = excluded.version_id,
		   revision = excluded.revision, updated_at = excluded.updated_at`,
		userID, versionID, next, now,
	)
	if err != nil {
		return 0, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// #endregion save

// #region get
// Get reads the user's live arc.
func (s *Store) Get(userID string) (Arc, error) {
	row := s.db.QueryRow(
		`SELECT a.user_id, a.version_id, a.revision, a.updated_at, v.state_json
		 FROM active_arcs a JOIN arc_versions v ON v.version_id = a.version_id
		 WHERE a.user_id = ?`, userID,
	)
	a, err := scanArc(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Arc{}, fmt.Errorf("%w: user %s", ErrArcNotFound, userID)
	}
	if err != nil {
		return Arc{}, fmt.Errorf("get arc %s: %w", userID, err)
	}
	return a, nil
}

// Load is the best-effort form of Get: a missing row, read error, or
// undecodable snapshot all read as absent.
func (s *Store) Load(userID string) (Arc, bool) {
	a, err := s.Get(userID)
	if err != nil {
		if !errors.Is(err, ErrArcNotFound) {
			s.logger.Warn("load arc failed", zap.String("user", userID), zap.Error(err))
		}
		return Arc{}, false
	}
	return a, true
}

// #endregion get

// #region delete
// Delete removes the user's live arc and its history.
func (s *Store) Delete(userID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM active_arcs WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete active: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM arc_versions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	return tx.Commit()
}

// #endregion delete

// #region list
// List returns every live arc ordered by user ID. Rows whose snapshot cannot
// be decoded are skipped and logged.
func (s *Store) List() ([]Arc, error) {
	rows, err := s.db.Query(
		`SELECT a.user_id, a.version_id, a.revision, a.updated_at, v.state_json
		 FROM active_arcs a JOIN arc_versions v ON v.version_id = a.version_id
		 ORDER BY a.user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list arcs: %w", err)
	}
	defer rows.Close()

	arcs := []Arc{}
	for rows.Next() {
		a, err := scanArc(rows)
		if err != nil {
			s.logger.Warn("skip unreadable arc", zap.Error(err))
			continue
		}
		arcs = append(arcs, a)
	}
	return arcs, rows.Err()
}

// #endregion list

// #region history
// History returns the user's most recent snapshots, newest first.
func (s *Store) History(userID string, limit int) ([]Version, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, user_id, state_json, created_at
		 FROM arc_versions WHERE user_id = ? ORDER BY rowid DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		var parentID sql.NullString
		var stateJSON, createdStr string
		if err := rows.Scan(&v.VersionID, &parentID, &v.UserID, &stateJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if parentID.Valid {
			v.ParentID = parentID.String
		}
		if err := json.Unmarshal([]byte(stateJSON), &v.State); err != nil {
			return nil, fmt.Errorf("unmarshal state %s: %w", v.VersionID, err)
		}
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// #endregion history

// #region rollback
// Rollback points the user's live arc at an earlier snapshot of theirs.
func (s *Store) Rollback(userID, versionID string) (int64, error) {
	var owner string
	err := s.db.QueryRow(
		`SELECT user_id FROM arc_versions WHERE version_id = ?`, versionID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
		return 0, fmt.Errorf("version %s not found for user %s", versionID, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("check version: %w", err)
	}

	var revision int64
	err = s.db.QueryRow(
		`UPDATE active_arcs SET version_id = ?, revision = revision + 1, updated_at = ?
		 WHERE user_id = ? RETURNING revision`,
		versionID, s.now().UTC().Format(timeLayout), userID,
	).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: user %s", ErrArcNotFound, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("rollback: %w", err)
	}
	return revision, nil
}

// #endregion rollback

// #region scan
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArc(r rowScanner) (Arc, error) {
	var a Arc
	var updatedStr, stateJSON string
	if err := r.Scan(&a.UserID, &a.VersionID, &a.Revision, &updatedStr, &stateJSON); err != nil {
		return Arc{}, err
	}
	if err := json.Unmarshal([]byte(stateJSON), &a.State); err != nil {
		return Arc{}, fmt.Errorf("unmarshal state for %s: %w", a.UserID, err)
	}
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return a, nil
}

// #endregion scan
