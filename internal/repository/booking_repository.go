package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/venuely/slot-booking/internal/model"
)

// BookingRepo provides data access to the bookings table. Bookings are
// created and advanced only inside the coordinator's transactions; the
// read-only listing methods are safe outside one. All timestamps are UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, venue_id, slot_id, user_id, customer_name, customer_phone, date, start_time, end_time, amount_cents, booking_type, status, expires_at, payment_method, created_at`

func scanBooking(row interface{ Scan(dest ...any) error }) (model.Booking, error) {
    var b model.Booking
    var userID sql.NullInt64
    var expiresAt sql.NullTime
    err := row.Scan(&b.ID, &b.VenueID, &b.SlotID, &userID, &b.CustomerName, &b.CustomerPhone,
        &b.Date, &b.StartTime, &b.EndTime, &b.AmountCents, &b.Type, &b.Status,
        &expiresAt, &b.PaymentMethod, &b.CreatedAt)
    if err != nil {
        return model.Booking{}, err
    }
    if userID.Valid {
        v := uint64(userID.Int64)
        b.UserID = &v
    }
    if expiresAt.Valid {
        t := expiresAt.Time.UTC()
        b.ExpiresAt = &t
    }
    return b, nil
}

// Create inserts a booking row. The caller supplies the generated ID and
// the server-computed amount; nothing here is trusted from a client.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    const q = `INSERT INTO bookings
               (id, venue_id, slot_id, user_id, customer_name, customer_phone, date, start_time, end_time, amount_cents, booking_type, status, expires_at, payment_method, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
    var userID any
    if b.UserID != nil {
        userID = *b.UserID
    }
    var expiresAt any
    if b.ExpiresAt != nil {
        expiresAt = b.ExpiresAt.UTC().Format("2006-01-02 15:04:05")
    }
    _, err := conn(ctx, r.db).ExecContext(ctx, q,
        b.ID, b.VenueID, b.SlotID, userID, b.CustomerName, b.CustomerPhone,
        b.Date, b.StartTime, b.EndTime, b.AmountCents, b.Type, b.Status,
        expiresAt, b.PaymentMethod)
    return err
}

// GetByID fetches a booking. Returns ErrBookingNotFound when absent.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Booking{}, ErrBookingNotFound
    }
    return b, err
}

// GetByIDForUpdate fetches a booking with a row lock. Must be called
// inside a transaction; payment confirmation locks the booking first and
// the slot second, always in that order, so concurrent confirmations
// serialize without deadlocking.
func (r *BookingRepo) GetByIDForUpdate(ctx context.Context, id string) (model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
    b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Booking{}, ErrBookingNotFound
    }
    return b, err
}

// UpdateStatus persists a booking's status. The caller must hold the row
// lock from GetByIDForUpdate within the same transaction.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
    const q = `UPDATE bookings SET status = ? WHERE id = ?`
    _, err := conn(ctx, r.db).ExecContext(ctx, q, status, id)
    return err
}

// Delete removes a booking row. Only the manager unbook path for physical
// bookings uses this; online bookings are cancelled, never deleted.
func (r *BookingRepo) Delete(ctx context.Context, id string) error {
    const q = `DELETE FROM bookings WHERE id = ?`
    _, err := conn(ctx, r.db).ExecContext(ctx, q, id)
    return err
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, userID)
}

// ListByVenue returns a venue's bookings, newest first. Manager listing
// endpoint only.
func (r *BookingRepo) ListByVenue(ctx context.Context, venueID uint64) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE venue_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, venueID)
}

func (r *BookingRepo) list(ctx context.Context, query string, arg any) ([]model.Booking, error) {
    rows, err := conn(ctx, r.db).QueryContext(ctx, query, arg)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Booking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}
