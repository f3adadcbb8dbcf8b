package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oneoblomov/HandPC/internal/calibration"
)

// Profile is a stored calibration result.
type Profile struct {
	ID        string
	Profile   calibration.Profile
	CreatedAt time.Time
}

// ProfileRepository provides CRUD operations for calibration profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

const profileColumns = `id, hand_size, pinch_threshold, movement_threshold, sensitivity,
	rest_x, rest_y, min_x, max_x, min_y, max_y, samples, created_at`

// Create inserts a new profile, assigning an ID when p has none.
func (r *ProfileRepository) Create(p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	c := p.Profile
	_, err := r.db.Exec(
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, c.HandSize, c.PinchThreshold, c.MovementThreshold, c.Sensitivity,
		c.RestX, c.RestY, c.MovementRange.MinX, c.MovementRange.MaxX,
		c.MovementRange.MinY, c.MovementRange.MaxY, c.Samples, p.CreatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	c := &p.Profile
	err := row.Scan(&p.ID, &c.HandSize, &c.PinchThreshold, &c.MovementThreshold, &c.Sensitivity,
		&c.RestX, &c.RestY, &c.MovementRange.MinX, &c.MovementRange.MaxX,
		&c.MovementRange.MinY, &c.MovementRange.MaxY, &c.Samples, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Calibrated = true
	return p, nil
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Latest retrieves the most recently created profile.
func (r *ProfileRepository) Latest() (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List retrieves all profiles, newest first.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(
		`SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC, rowid DESC`,
	)
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

// Delete removes a profile by its ID.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
