package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Sample is one recorded rep stored for profile training.
type Sample struct {
	ID          int64           `json:"id"`
	ProfileID   string          `json:"profile_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository provides operations on recorded reps.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Add appends samples to a profile in a single transaction and updates the
// profile's sample count. Returns ErrNotFound for an unknown profile.
func (r *SampleRepository) Add(profileID string, samples []json.RawMessage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRow(`SELECT id FROM profiles WHERE id = ?`, profileID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var next int
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(sample_index) + 1, 0) FROM profile_samples WHERE profile_id = ?`,
		profileID,
	).Scan(&next)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO profile_samples (profile_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, data := range samples {
		if _, err := stmt.Exec(profileID, next+i, string(data)); err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		`UPDATE profiles SET samples = (SELECT COUNT(*) FROM profile_samples WHERE profile_id = ?), updated_at = ?
		 WHERE id = ?`,
		profileID, time.Now(), profileID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetByProfileID retrieves all samples for a profile in recording order.
func (r *SampleRepository) GetByProfileID(profileID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, profile_id, sample_index, data, created_at
		 FROM profile_samples
		 WHERE profile_id = ?
		 ORDER BY sample_index`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteByProfileID removes all samples for a profile.
func (r *SampleRepository) DeleteByProfileID(profileID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM profile_samples WHERE profile_id = ?`, profileID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE profiles SET samples = 0 WHERE id = ?`, profileID); err != nil {
		return err
	}
	return tx.Commit()
}
