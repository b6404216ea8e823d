package model

import (
    "fmt"
    "time"

    "github.com/google/uuid"
)

// SlotStatus is the canonical lifecycle state of a bookable slot as stored
// in the `slots` table. The stored status is not always the effective one:
// a HELD slot whose hold has expired is treated as AVAILABLE everywhere.
// Use EffectiveSlotStatus before making any decision based on status.
type SlotStatus string

const (
    SlotAvailable SlotStatus = "AVAILABLE" // free for anyone to hold
    SlotHeld      SlotStatus = "HELD"      // temporarily claimed pending payment
    SlotReserved  SlotStatus = "RESERVED"  // manager-created physical booking
    SlotBooked    SlotStatus = "BOOKED"    // paid online booking
)

// slotTransitions is the closed transition table for slot statuses.  Any
// transition not listed here is rejected by the booking coordinator.  BOOKED
// is terminal: a paid booking is never undone by a manager operation.
var slotTransitions = map[SlotStatus]map[SlotStatus]bool{
    SlotAvailable: {SlotHeld: true, SlotReserved: true},
    SlotHeld:      {SlotBooked: true, SlotAvailable: true},
    SlotReserved:  {SlotAvailable: true},
    SlotBooked:    {},
}

// CanTransition reports whether moving from s to next is a legal slot
// lifecycle transition.
func (s SlotStatus) CanTransition(next SlotStatus) bool {
    return slotTransitions[s][next]
}

// Valid reports whether s is one of the known slot statuses.
func (s SlotStatus) Valid() bool {
    _, ok := slotTransitions[s]
    return ok
}

// Slot represents a single bookable time window at a venue on a specific
// date. It corresponds to a row in the `slots` table. The identity of a
// slot is (VenueID, Date, StartTime); the ID column is derived
// deterministically from that triple so repeated generation never
// duplicates records.
//
// Fields:
//  ID            – deterministic UUID derived from (venue, date, start).
//  VenueID       – venue the slot belongs to.
//  Date          – calendar date in "2006-01-02" format.
//  StartTime     – start of the window in "15:04" format.
//  EndTime       – end of the window in "15:04" format.
//  Status        – canonical status (see SlotStatus).
//  HeldBy        – user currently holding the slot (nullable).
//  HoldExpiresAt – when the current hold lapses (nullable).
//  BookingID     – booking occupying the slot (nullable).
//  UpdatedAt     – timestamp of last mutation.
type Slot struct {
    ID            string     // slots.id
    VenueID       uint64     // slots.venue_id
    Date          string     // slots.date
    StartTime     string     // slots.start_time
    EndTime       string     // slots.end_time
    Status        SlotStatus // slots.status
    HeldBy        *uint64    // slots.held_by (nullable)
    HoldExpiresAt *time.Time // slots.hold_expires_at (nullable)
    BookingID     *string    // slots.booking_id (nullable)
    UpdatedAt     time.Time  // slots.updated_at
}

// slotIDNamespace is the UUIDv5 namespace under which slot identities are
// derived. It must never change once slots exist in production.
var slotIDNamespace = uuid.MustParse("8f1c2a4e-6b3d-4f5a-9c7e-2d1b0a9e8f7c")

// SlotID derives the deterministic identifier for the slot at the given
// venue, date and start time. Calling it twice with the same arguments
// always yields the same ID, which is what makes slot generation idempotent.
func SlotID(venueID uint64, date, startTime string) string {
    name := fmt.Sprintf("%d:%s:%s", venueID, date, startTime)
    return uuid.NewSHA1(slotIDNamespace, []byte(name)).String()
}

// HoldActive reports whether a hold with the given expiry is still live at
// the given instant. A nil expiry means no hold exists. This is the single
// expiry rule applied everywhere a hold is read: the slot store, the venue
// mirror and the booking coordinator all agree by construction.
func HoldActive(expiresAt *time.Time, now time.Time) bool {
    return expiresAt != nil && expiresAt.After(now)
}

// EffectiveSlotStatus applies the lazy-expiry rule to a slot's stored
// status. A HELD slot whose hold has lapsed is AVAILABLE; every other
// status passes through unchanged. There is no background sweeper: stale
// holds are reclaimed by the next writer and hidden from every reader
// through this function.
func EffectiveSlotStatus(s Slot, now time.Time) SlotStatus {
    if s.Status == SlotHeld && !HoldActive(s.HoldExpiresAt, now) {
        return SlotAvailable
    }
    return s.Status
}
