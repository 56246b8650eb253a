package interest

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// #region memory
// MemoryRepository keeps profiles in process memory. Safe for concurrent use.
type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]Profile)}
}

func (r *MemoryRepository) Load(userID string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	p.Counts = maps.Clone(p.Counts)
	return p, nil
}

func (r *MemoryRepository) Save(userID string, p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Counts = maps.Clone(p.Counts)
	r.profiles[userID] = p
	return nil
}

// #endregion memory

// #region sqlite
const profileSchema = `
CREATE TABLE IF NOT EXISTS interest_profiles (
	user_id      TEXT PRIMARY KEY,
	profile_json TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
`

// SQLiteRepository stores one JSON-serialized profile per user.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates the interest_profiles table if needed.
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if _, err := db.Exec(profileSchema); err != nil {
		return nil, fmt.Errorf("migrate interest_profiles: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Load(userID string) (Profile, error) {
	var raw string
	err := r.db.QueryRow(
		`SELECT profile_json FROM interest_profiles WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("load profile %s: %w", userID, err)
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	return p, nil
}

func (r *SQLiteRepository) Save(userID string, p Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = r.db.Exec(
		`INSERT INTO interest_profiles (user_id, profile_json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at`,
		userID, string(raw), p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", userID, err)
	}
	return nil
}

// #endregion sqlite
