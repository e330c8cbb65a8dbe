package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Profile is a custom reference profile for one exercise.
type Profile struct {
	ID             string
	Name           string
	Exercise       string
	IdealDuration  time.Duration
	TempoTolerance float64
	// Curves maps signal names to recorded ideal trajectories (JSON).
	Curves    json.RawMessage
	Active    bool
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileRepository provides CRUD operations for profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

const profileColumns = `id, name, exercise, ideal_ms, tempo_tolerance, curves, active, samples, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var idealMs int64
	var curves string
	var active int

	err := row.Scan(&p.ID, &p.Name, &p.Exercise, &idealMs, &p.TempoTolerance,
		&curves, &active, &p.Samples, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.IdealDuration = time.Duration(idealMs) * time.Millisecond
	p.Curves = json.RawMessage(curves)
	p.Active = active != 0
	return p, nil
}

func curvesOrEmpty(c json.RawMessage) string {
	if len(c) == 0 {
		return "{}"
	}
	return string(c)
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(p *Profile) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Exercise, p.IdealDuration.Milliseconds(), p.TempoTolerance,
		curvesOrEmpty(p.Curves), p.Active, p.Samples, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// GetActive returns the active profile for an exercise, or ErrNotFound.
func (r *ProfileRepository) GetActive(exercise string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE exercise = ? AND active = 1`, exercise))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List retrieves all profiles, newest first. An empty exercise lists all.
func (r *ProfileRepository) List(exercise string) ([]*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	var args []any
	if exercise != "" {
		query += ` WHERE exercise = ?`
		args = append(args, exercise)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update updates name, tempo settings and curves. Activation is changed
// only through Activate and Deactivate.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, ideal_ms = ?, tempo_tolerance = ?, curves = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.IdealDuration.Milliseconds(), p.TempoTolerance, curvesOrEmpty(p.Curves), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Activate makes the profile the active one for its exercise, deactivating
// any other.
func (r *ProfileRepository) Activate(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exercise string
	err = tx.QueryRow(`SELECT exercise FROM profiles WHERE id = ?`, id).Scan(&exercise)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE profiles SET active = 0 WHERE exercise = ?`, exercise); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE profiles SET active = 1, updated_at = ? WHERE id = ?`, time.Now(), id); err != nil {
		return err
	}
	return tx.Commit()
}

// Deactivate clears the active flag, reverting the exercise to its built-in
// reference.
func (r *ProfileRepository) Deactivate(id string) error {
	result, err := r.db.Exec(`UPDATE profiles SET active = 0, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Delete removes a profile and its samples.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

func expectOne(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
