package model

import "time"

// The venue aggregate mirror is a denormalized, per-venue snapshot of every
// held, blocked and booked slot, kept in Redis for fast availability reads.
// It is a derived cache: the slot store is always the source of truth and
// the mirror must never be used to establish exclusivity. Entries here can
// be stale by construction; readers re-validate hold expiry with the same
// HoldActive rule the slot store uses, and availability queries let the
// slot store win whenever the two disagree.

// HeldEntry records a live hold in the mirror.
type HeldEntry struct {
    Date      string    `json:"date"`
    StartTime string    `json:"start_time"`
    HolderID  uint64    `json:"holder_id"`
    ExpiresAt time.Time `json:"expires_at"`
    BookingID string    `json:"booking_id"`
}

// BlockEntry records a manager-placed block in the mirror. Blocks exist
// only in the mirror; they are a display-level convenience and accept the
// eventual-consistency risk that implies.
type BlockEntry struct {
    Date      string    `json:"date"`
    StartTime string    `json:"start_time"`
    Reason    string    `json:"reason"`
    BlockedBy uint64    `json:"blocked_by"`
    BlockedAt time.Time `json:"blocked_at"`
}

// BookingEntry records a confirmed or reserved slot in the mirror.
type BookingEntry struct {
    Date         string      `json:"date"`
    StartTime    string      `json:"start_time"`
    BookingID    string      `json:"booking_id"`
    Type         BookingType `json:"booking_type"`
    CustomerName string      `json:"customer_name,omitempty"`
}

// VenueMirror is the full per-venue snapshot document stored under one
// Redis key. All list mutations are idempotent upserts/removals keyed by
// (date, start_time), matching the slot store's identity.
type VenueMirror struct {
    VenueID   uint64         `json:"venue_id"`
    Held      []HeldEntry    `json:"held"`
    Blocked   []BlockEntry   `json:"blocked"`
    Bookings  []BookingEntry `json:"bookings"`
    UpdatedAt time.Time      `json:"updated_at"`
}

// UpsertHeld inserts or replaces the held entry for the entry's slot key.
func (m *VenueMirror) UpsertHeld(e HeldEntry) {
    for i := range m.Held {
        if m.Held[i].Date == e.Date && m.Held[i].StartTime == e.StartTime {
            m.Held[i] = e
            return
        }
    }
    m.Held = append(m.Held, e)
}

// RemoveHeld drops the held entry for the given slot key. It is a no-op
// when no matching entry exists.
func (m *VenueMirror) RemoveHeld(date, startTime string) {
    for i := range m.Held {
        if m.Held[i].Date == date && m.Held[i].StartTime == startTime {
            m.Held = append(m.Held[:i], m.Held[i+1:]...)
            return
        }
    }
}

// UpsertBlock inserts or replaces the block entry for the entry's slot key.
func (m *VenueMirror) UpsertBlock(e BlockEntry) {
    for i := range m.Blocked {
        if m.Blocked[i].Date == e.Date && m.Blocked[i].StartTime == e.StartTime {
            m.Blocked[i] = e
            return
        }
    }
    m.Blocked = append(m.Blocked, e)
}

// RemoveBlock drops the block entry for the given slot key. No-op when
// absent.
func (m *VenueMirror) RemoveBlock(date, startTime string) {
    for i := range m.Blocked {
        if m.Blocked[i].Date == date && m.Blocked[i].StartTime == startTime {
            m.Blocked = append(m.Blocked[:i], m.Blocked[i+1:]...)
            return
        }
    }
}

// UpsertBooking inserts or replaces the booking entry for the entry's slot
// key.
func (m *VenueMirror) UpsertBooking(e BookingEntry) {
    for i := range m.Bookings {
        if m.Bookings[i].Date == e.Date && m.Bookings[i].StartTime == e.StartTime {
            m.Bookings[i] = e
            return
        }
    }
    m.Bookings = append(m.Bookings, e)
}

// RemoveBooking drops the booking entry for the given slot key. No-op when
// absent.
func (m *VenueMirror) RemoveBooking(date, startTime string) {
    for i := range m.Bookings {
        if m.Bookings[i].Date == date && m.Bookings[i].StartTime == startTime {
            m.Bookings = append(m.Bookings[:i], m.Bookings[i+1:]...)
            return
        }
    }
}

// HasBooking reports whether a booking entry occupies the given slot key.
func (m *VenueMirror) HasBooking(date, startTime string) bool {
    for i := range m.Bookings {
        if m.Bookings[i].Date == date && m.Bookings[i].StartTime == startTime {
            return true
        }
    }
    return false
}

// ActiveHeld returns the held entries whose holds are still live at the
// given instant. Stale entries are filtered, not deleted: the mirror heals
// lazily the next time a writer touches the same slot.
func (m *VenueMirror) ActiveHeld(now time.Time) []HeldEntry {
    out := make([]HeldEntry, 0, len(m.Held))
    for _, e := range m.Held {
        exp := e.ExpiresAt
        if HoldActive(&exp, now) {
            out = append(out, e)
        }
    }
    return out
}
