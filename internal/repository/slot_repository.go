package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/venuely/slot-booking/internal/model"
)

// SlotRepo provides data access to the slots table. Status-changing
// updates must run inside a TxRunner transaction and start from a
// GetForUpdate read; unguarded writes are not exposed. All timestamps are
// UTC.
type SlotRepo struct {
    db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the provided database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, venue_id, date, start_time, end_time, status, held_by, hold_expires_at, booking_id, updated_at`

func scanSlot(row interface{ Scan(dest ...any) error }) (model.Slot, error) {
    var s model.Slot
    var heldBy sql.NullInt64
    var holdExp sql.NullTime
    var bookingID sql.NullString
    err := row.Scan(&s.ID, &s.VenueID, &s.Date, &s.StartTime, &s.EndTime, &s.Status,
        &heldBy, &holdExp, &bookingID, &s.UpdatedAt)
    if err != nil {
        return model.Slot{}, err
    }
    if heldBy.Valid {
        v := uint64(heldBy.Int64)
        s.HeldBy = &v
    }
    if holdExp.Valid {
        t := holdExp.Time.UTC()
        s.HoldExpiresAt = &t
    }
    if bookingID.Valid {
        v := bookingID.String
        s.BookingID = &v
    }
    return s, nil
}

// Get fetches a slot by its (venue, date, start time) identity. Returns
// ErrSlotNotFound when absent.
func (r *SlotRepo) Get(ctx context.Context, venueID uint64, date, startTime string) (model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots WHERE venue_id = ? AND date = ? AND start_time = ?`
    s, err := scanSlot(conn(ctx, r.db).QueryRowContext(ctx, q, venueID, date, startTime))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Slot{}, ErrSlotNotFound
    }
    return s, err
}

// GetForUpdate fetches a slot by identity with a row lock. It must be
// called inside a transaction; the lock serializes concurrent hold and
// booking attempts on the same slot, which is the system's only hard
// concurrency requirement.
func (r *SlotRepo) GetForUpdate(ctx context.Context, venueID uint64, date, startTime string) (model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots WHERE venue_id = ? AND date = ? AND start_time = ? FOR UPDATE`
    s, err := scanSlot(conn(ctx, r.db).QueryRowContext(ctx, q, venueID, date, startTime))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Slot{}, ErrSlotNotFound
    }
    return s, err
}

// GetByIDForUpdate fetches a slot by its derived ID with a row lock, for
// callers that already have a booking's slot back-reference.
func (r *SlotRepo) GetByIDForUpdate(ctx context.Context, id string) (model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ? FOR UPDATE`
    s, err := scanSlot(conn(ctx, r.db).QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Slot{}, ErrSlotNotFound
    }
    return s, err
}

// UpdateState persists a slot's status and hold metadata. The caller must
// hold the row lock from GetForUpdate within the same transaction.
func (r *SlotRepo) UpdateState(ctx context.Context, s model.Slot) error {
    const q = `UPDATE slots SET status = ?, held_by = ?, hold_expires_at = ?, booking_id = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
    var heldBy any
    if s.HeldBy != nil {
        heldBy = *s.HeldBy
    }
    var holdExp any
    if s.HoldExpiresAt != nil {
        holdExp = s.HoldExpiresAt.UTC().Format("2006-01-02 15:04:05")
    }
    var bookingID any
    if s.BookingID != nil {
        bookingID = *s.BookingID
    }
    _, err := conn(ctx, r.db).ExecContext(ctx, q, s.Status, heldBy, holdExp, bookingID, s.ID)
    return err
}

// CreateBulk inserts slot rows in one statement. INSERT IGNORE keeps any
// existing row for the same identity untouched, which makes repeated
// generation calls idempotent: a held or booked slot is never overwritten
// by regeneration.
func (r *SlotRepo) CreateBulk(ctx context.Context, slots []model.Slot) error {
    if len(slots) == 0 {
        return nil
    }
    query := `INSERT IGNORE INTO slots (id, venue_id, date, start_time, end_time, status) VALUES `
    args := make([]any, 0, len(slots)*6)
    for i, s := range slots {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?)"
        args = append(args, s.ID, s.VenueID, s.Date, s.StartTime, s.EndTime, s.Status)
    }
    _, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
    return err
}

// ListByVenueRange returns all slots for a venue whose date falls in
// [fromDate, toDate], ordered by date then start time.
func (r *SlotRepo) ListByVenueRange(ctx context.Context, venueID uint64, fromDate, toDate string) ([]model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots
               WHERE venue_id = ? AND date >= ? AND date <= ?
               ORDER BY date, start_time`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, venueID, fromDate, toDate)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Slot
    for rows.Next() {
        s, err := scanSlot(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// ListOccupiedByVenue returns every slot for a venue whose stored status is
// not AVAILABLE. Used by the mirror rebuild and by the self-healing
// availability query; callers still apply the effective-status rule since
// a returned HELD row may have lapsed.
func (r *SlotRepo) ListOccupiedByVenue(ctx context.Context, venueID uint64) ([]model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM slots
               WHERE venue_id = ? AND status <> ?
               ORDER BY date, start_time`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, venueID, model.SlotAvailable)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Slot
    for rows.Next() {
        s, err := scanSlot(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// DeleteAvailableInDates removes AVAILABLE slots for the given venue and
// dates. Regeneration calls this before inserting a new grid so a changed
// daily window does not leave orphaned free slots behind; occupied rows
// are deliberately excluded.
func (r *SlotRepo) DeleteAvailableInDates(ctx context.Context, venueID uint64, dates []string) error {
    if len(dates) == 0 {
        return nil
    }
    placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")
    query := `DELETE FROM slots WHERE venue_id = ? AND status = ? AND date IN (` + placeholders + `)`
    args := make([]any, 0, len(dates)+2)
    args = append(args, venueID, model.SlotAvailable)
    for _, d := range dates {
        args = append(args, d)
    }
    _, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
    return err
}
