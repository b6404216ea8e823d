package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/venuely/slot-booking/internal/model"
)

// VenueRepo provides data access to the venues table. Venue pricing read
// here is the only source for booking amounts.
type VenueRepo struct {
    db *sql.DB
}

// NewVenueRepo returns a new VenueRepo bound to the provided database.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

const venueColumns = `id, manager_id, name, open_time, close_time, slot_duration_min, hourly_rate_cents, created_at, updated_at`

func scanVenue(row interface{ Scan(dest ...any) error }) (model.Venue, error) {
    var v model.Venue
    err := row.Scan(&v.ID, &v.ManagerID, &v.Name, &v.OpenTime, &v.CloseTime,
        &v.SlotDurationMin, &v.HourlyRateCents, &v.CreatedAt, &v.UpdatedAt)
    return v, err
}

// Create inserts a venue and populates the generated ID.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
    const q = `INSERT INTO venues (manager_id, name, open_time, close_time, slot_duration_min, hourly_rate_cents)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := conn(ctx, r.db).ExecContext(ctx, q,
        v.ManagerID, v.Name, v.OpenTime, v.CloseTime, v.SlotDurationMin, v.HourlyRateCents)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    v.ID = uint64(id)
    return nil
}

// GetByID fetches a venue. Returns ErrVenueNotFound when absent.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (model.Venue, error) {
    const q = `SELECT ` + venueColumns + ` FROM venues WHERE id = ?`
    v, err := scanVenue(conn(ctx, r.db).QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Venue{}, ErrVenueNotFound
    }
    return v, err
}

// ListByManager returns all venues managed by the given user.
func (r *VenueRepo) ListByManager(ctx context.Context, managerID uint64) ([]model.Venue, error) {
    const q = `SELECT ` + venueColumns + ` FROM venues WHERE manager_id = ? ORDER BY id`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, managerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Venue
    for rows.Next() {
        v, err := scanVenue(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, v)
    }
    return out, rows.Err()
}
