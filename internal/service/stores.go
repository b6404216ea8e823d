// Package service implements the slot reservation engine: the hold
// manager, the booking transaction coordinator and the slot/availability
// operations. Services depend on narrow store contracts so the engine is
// exercised in tests against in-memory fakes with a controlled clock,
// while production wires the MySQL repositories and the Redis mirror.
package service

import (
    "context"

    "github.com/venuely/slot-booking/internal/model"
)

// Tx runs a function as one atomic unit against the primary store. Every
// status-changing operation in this package does all of its reads and
// writes inside a single WithTx call; mirror writes happen strictly after
// it returns.
type Tx interface {
    WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SlotStore is the slot table contract. ForUpdate reads take a row lock
// and are only legal inside a Tx; the lock on a single slot row is the
// unit of mutual exclusion for the whole system.
type SlotStore interface {
    Get(ctx context.Context, venueID uint64, date, startTime string) (model.Slot, error)
    GetForUpdate(ctx context.Context, venueID uint64, date, startTime string) (model.Slot, error)
    GetByIDForUpdate(ctx context.Context, id string) (model.Slot, error)
    UpdateState(ctx context.Context, s model.Slot) error
    CreateBulk(ctx context.Context, slots []model.Slot) error
    ListByVenueRange(ctx context.Context, venueID uint64, fromDate, toDate string) ([]model.Slot, error)
    ListOccupiedByVenue(ctx context.Context, venueID uint64) ([]model.Slot, error)
    DeleteAvailableInDates(ctx context.Context, venueID uint64, dates []string) error
}

// BookingStore is the bookings table contract.
type BookingStore interface {
    Create(ctx context.Context, b *model.Booking) error
    GetByIDForUpdate(ctx context.Context, id string) (model.Booking, error)
    UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error
    Delete(ctx context.Context, id string) error
}

// VenueStore resolves venues; booking amounts come from the pricing read
// here and never from a caller.
type VenueStore interface {
    GetByID(ctx context.Context, id uint64) (model.Venue, error)
}

// Mirror is the venue aggregate snapshot contract. Every method is an
// idempotent upsert or removal keyed by (date, start time). Callers treat
// all errors as log-and-continue: the mirror must never fail a primary
// operation.
type Mirror interface {
    Get(ctx context.Context, venueID uint64) (model.VenueMirror, error)
    Put(ctx context.Context, doc model.VenueMirror) error
    UpsertHeld(ctx context.Context, venueID uint64, e model.HeldEntry) error
    RemoveHeld(ctx context.Context, venueID uint64, date, startTime string) error
    UpsertBooking(ctx context.Context, venueID uint64, e model.BookingEntry) error
    RemoveBooking(ctx context.Context, venueID uint64, date, startTime string) error
    UpsertBlock(ctx context.Context, venueID uint64, e model.BlockEntry) error
    RemoveBlock(ctx context.Context, venueID uint64, date, startTime string) error
}

// EventPublisher emits domain events after a primary transaction commits.
// Failures are logged and swallowed like mirror writes.
type EventPublisher interface {
    BookingConfirmed(ctx context.Context, b model.Booking) error
}
