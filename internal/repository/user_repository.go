package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nearu/nearu-backend/internal/models"
)

const userColumns = `id, display_name, program, email, latitude, longitude, accuracy, location_ts,
	last_active, is_active, ghost_mode, sample_lat, sample_lon, sample_accuracy, sample_ts`

// UserRepository handles the users collection
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		u                   models.User
		lat, lon, acc       sql.NullFloat64
		locTS               sql.NullInt64
		sLat, sLon, sAcc    sql.NullFloat64
		sampleTS            sql.NullInt64
		lastActive          int64
		isActive, ghostMode int
	)
	err := row.Scan(&u.ID, &u.DisplayName, &u.Program, &u.Email, &lat, &lon, &acc, &locTS,
		&lastActive, &isActive, &ghostMode, &sLat, &sLon, &sAcc, &sampleTS)
	if err != nil {
		return u, err
	}

	u.Location = scanLocation(lat, lon, acc, locTS)
	u.LastSample = scanLocation(sLat, sLon, sAcc, sampleTS)
	if u.LastSample == nil && u.Location != nil {
		sample := *u.Location
		u.LastSample = &sample
	}
	u.LastActive = time.UnixMilli(lastActive)
	u.IsActive = isActive == 1
	u.GhostMode = ghostMode == 1
	return u, nil
}

func scanLocation(lat, lon, acc sql.NullFloat64, ts sql.NullInt64) *models.Location {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	loc := models.Location{Latitude: lat.Float64, Longitude: lon.Float64, Timestamp: ts.Int64}
	if acc.Valid {
		loc.Accuracy = models.Meters(acc.Float64)
	}
	return &loc
}

func nullAccuracy(loc models.Location) sql.NullFloat64 {
	if loc.Accuracy == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *loc.Accuracy, Valid: true}
}

// Get retrieves a user by id. A missing user yields nil, nil.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return &u, nil
}

// UpsertProfile creates the user or merges the profile fields
func (r *UserRepository) UpsertProfile(ctx context.Context, id, displayName, program, email string, now time.Time) error {
	query := `INSERT INTO users (id, display_name, program, email, last_active, is_active)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			program = excluded.program,
			email = CASE WHEN excluded.email = '' THEN users.email ELSE excluded.email END,
			last_active = excluded.last_active`

	if _, err := r.db.ExecContext(ctx, query, id, displayName, program, email, now.UnixMilli()); err != nil {
		return storageErr("upsert profile", err)
	}
	return nil
}

// UpdatePresence merges lastActive and isActive. A non-nil loc replaces both
// the stored location and the last sample.
func (r *UserRepository) UpdatePresence(ctx context.Context, id string, loc *models.Location, isActive bool, now time.Time) error {
	if loc == nil {
		query := `INSERT INTO users (id, last_active, is_active) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET last_active = excluded.last_active, is_active = excluded.is_active`
		if _, err := r.db.ExecContext(ctx, query, id, now.UnixMilli(), boolToInt(isActive)); err != nil {
			return storageErr("update presence", err)
		}
		return nil
	}

	acc := nullAccuracy(*loc)
	query := `INSERT INTO users (id, latitude, longitude, accuracy, location_ts,
			sample_lat, sample_lon, sample_accuracy, sample_ts, last_active, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			accuracy = excluded.accuracy,
			location_ts = excluded.location_ts,
			sample_lat = excluded.sample_lat,
			sample_lon = excluded.sample_lon,
			sample_accuracy = excluded.sample_accuracy,
			sample_ts = excluded.sample_ts,
			last_active = excluded.last_active,
			is_active = excluded.is_active`

	_, err := r.db.ExecContext(ctx, query, id, loc.Latitude, loc.Longitude, acc, loc.Timestamp,
		loc.Latitude, loc.Longitude, acc, loc.Timestamp, now.UnixMilli(), boolToInt(isActive))
	if err != nil {
		return storageErr("update location", err)
	}
	return nil
}

// RecordSample stores sample as the last sample and merges lastActive and
// isActive, leaving the stored location untouched
func (r *UserRepository) RecordSample(ctx context.Context, id string, sample models.Location, isActive bool, now time.Time) error {
	query := `INSERT INTO users (id, sample_lat, sample_lon, sample_accuracy, sample_ts, last_active, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sample_lat = excluded.sample_lat,
			sample_lon = excluded.sample_lon,
			sample_accuracy = excluded.sample_accuracy,
			sample_ts = excluded.sample_ts,
			last_active = excluded.last_active,
			is_active = excluded.is_active`

	_, err := r.db.ExecContext(ctx, query, id, sample.Latitude, sample.Longitude, nullAccuracy(sample),
		sample.Timestamp, now.UnixMilli(), boolToInt(isActive))
	if err != nil {
		return storageErr("record sample", err)
	}
	return nil
}

// SetGhostMode toggles ghost mode. A ghost is never active.
func (r *UserRepository) SetGhostMode(ctx context.Context, id string, ghost bool, now time.Time) error {
	query := `INSERT INTO users (id, ghost_mode, is_active, last_active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ghost_mode = excluded.ghost_mode,
			is_active = excluded.is_active,
			last_active = excluded.last_active`

	if _, err := r.db.ExecContext(ctx, query, id, boolToInt(ghost), boolToInt(!ghost), now.UnixMilli()); err != nil {
		return storageErr("set ghost mode", err)
	}
	return nil
}

// ListActive returns users with isActive == true, most recently active first
func (r *UserRepository) ListActive(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE is_active = 1 ORDER BY last_active DESC`)
	if err != nil {
		return nil, storageErr("list active users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storageErr("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list active users", err)
	}
	return users, nil
}
