// Package mirror stores the per-venue aggregate snapshot in Redis. One
// JSON document per venue lists every held, blocked and booked slot so
// availability screens render without scanning the slots table. The
// mirror is a derived cache: writes here are best-effort, happen strictly
// after the primary transaction commits, and a failure is logged by the
// caller and swallowed. The slot store remains the only authority on
// whether a slot is actually free.
package mirror

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/venuely/slot-booking/internal/model"
)

const keyPrefix = "venue:mirror:"

// RedisMirror reads and mutates venue mirror documents in Redis. Each
// mutation is a read-modify-write of the whole document under a WATCH so
// concurrent best-effort writers do not drop each other's entries.
type RedisMirror struct {
    rdb *redis.Client
}

// New returns a RedisMirror over the given client.
func New(rdb *redis.Client) *RedisMirror {
    return &RedisMirror{rdb: rdb}
}

func key(venueID uint64) string {
    return fmt.Sprintf("%s%d", keyPrefix, venueID)
}

// Get loads the mirror document for a venue. A missing key yields an
// empty mirror, not an error: an empty snapshot is a valid state.
func (m *RedisMirror) Get(ctx context.Context, venueID uint64) (model.VenueMirror, error) {
    doc := model.VenueMirror{VenueID: venueID}
    raw, err := m.rdb.Get(ctx, key(venueID)).Bytes()
    if errors.Is(err, redis.Nil) {
        return doc, nil
    }
    if err != nil {
        return doc, err
    }
    if err := json.Unmarshal(raw, &doc); err != nil {
        // A corrupt document is treated as absent; the next rebuild or
        // upsert replaces it.
        return model.VenueMirror{VenueID: venueID}, nil
    }
    return doc, nil
}

// Put replaces the whole mirror document for a venue.
func (m *RedisMirror) Put(ctx context.Context, doc model.VenueMirror) error {
    doc.UpdatedAt = time.Now().UTC()
    raw, err := json.Marshal(doc)
    if err != nil {
        return err
    }
    return m.rdb.Set(ctx, key(doc.VenueID), raw, 0).Err()
}

// mutate applies fn to the venue's document inside an optimistic WATCH
// loop. It retries a few times on contention and gives up with the last
// error; callers treat any failure as a logged, non-fatal event.
func (m *RedisMirror) mutate(ctx context.Context, venueID uint64, fn func(doc *model.VenueMirror)) error {
    k := key(venueID)
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
            doc := model.VenueMirror{VenueID: venueID}
            raw, err := tx.Get(ctx, k).Bytes()
            if err != nil && !errors.Is(err, redis.Nil) {
                return err
            }
            if err == nil {
                if uerr := json.Unmarshal(raw, &doc); uerr != nil {
                    doc = model.VenueMirror{VenueID: venueID}
                }
            }
            fn(&doc)
            doc.UpdatedAt = time.Now().UTC()
            out, err := json.Marshal(doc)
            if err != nil {
                return err
            }
            _, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
                pipe.Set(ctx, k, out, 0)
                return nil
            })
            return err
        }, k)
        if err == nil {
            return nil
        }
        if !errors.Is(err, redis.TxFailedErr) {
            return err
        }
        lastErr = err
    }
    return lastErr
}

// UpsertHeld records a live hold in the venue's held list, replacing any
// previous entry for the same slot.
func (m *RedisMirror) UpsertHeld(ctx context.Context, venueID uint64, e model.HeldEntry) error {
    return m.mutate(ctx, venueID, func(doc *model.VenueMirror) { doc.UpsertHeld(e) })
}

// RemoveHeld drops the held entry for a slot. Idempotent.
func (m *RedisMirror) RemoveHeld(ctx context.Context, venueID uint64, date, startTime string) error {
    return m.mutate(ctx, venueID, func(doc *model.VenueMirror) { doc.RemoveHeld(date, startTime) })
}

// UpsertBooking records a confirmed or reserved slot, replacing any held
// entry for the same slot in the same write.
func (m *RedisMirror) UpsertBooking(ctx context.Context, venueID uint64, e model.BookingEntry) error {
    return m.mutate(ctx, venueID, func(doc *model.VenueMirror) {
        doc.RemoveHeld(e.Date, e.StartTime)
        doc.UpsertBooking(e)
    })
}

// RemoveBooking drops the booking entry for a slot. Idempotent.
func (m *RedisMirror) RemoveBooking(ctx context.Context, venueID uint64, date, startTime string) error {
    return m.mutate(ctx, venueID, func(doc *model.VenueMirror) { doc.RemoveBooking(date, startTime) })
}

// UpsertBlock records a manager block. The booking-collision veto happens
// in the service, which reads the document before writing.
func (m *RedisMirror) UpsertBlock(ctx context.Context, venueID uint64, e model.BlockEntry) error {
    return m.mutate(ctx, venueID, func(doc *model.VenueMirror) { doc.UpsertBlock(e) })
}

// RemoveBlock drops the block entry for a slot. Idempotent.
func (m *RedisMirror) RemoveBlock(ctx context.Context, venueID uint64, date, startTime string) error {
    return m.mutate(ctx, venueID, func(doc *model.VenueMirror) { doc.RemoveBlock(date, startTime) })
}
