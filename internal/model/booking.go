package model

import "time"

// BookingType distinguishes how a booking was created. Online bookings go
// through the hold-then-pay flow; physical bookings are entered by a venue
// manager on behalf of a walk-in or phone customer and skip payment.
type BookingType string

const (
    BookingOnline   BookingType = "ONLINE"
    BookingPhysical BookingType = "PHYSICAL"
)

// BookingStatus is the lifecycle state of a booking record.
type BookingStatus string

const (
    BookingPendingPayment BookingStatus = "PENDING_PAYMENT"
    BookingConfirmed      BookingStatus = "CONFIRMED"
    BookingCompleted      BookingStatus = "COMPLETED"
    BookingCancelled      BookingStatus = "CANCELLED"
)

// bookingTransitions is the closed transition table for booking statuses.
// PENDING_PAYMENT advances on a payment event or is cancelled; CONFIRMED can
// only complete or be cancelled; COMPLETED and CANCELLED are terminal.
var bookingTransitions = map[BookingStatus]map[BookingStatus]bool{
    BookingPendingPayment: {BookingConfirmed: true, BookingCancelled: true},
    BookingConfirmed:      {BookingCompleted: true, BookingCancelled: true},
    BookingCompleted:      {},
    BookingCancelled:      {},
}

// CanTransition reports whether moving from s to next is a legal booking
// lifecycle transition.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
    return bookingTransitions[s][next]
}

// Booking records a claim on a single slot. While PENDING_PAYMENT the
// booking mirrors the hold on its slot and carries the same expiry; once
// that expiry passes the booking is logically void and must never block a
// new hold. The amount is always computed server-side from venue pricing
// at hold creation and never trusted from a caller.
//
// Fields:
//  ID            – generated identifier (UUID).
//  VenueID       – venue the booked slot belongs to.
//  SlotID        – back-reference to the slot (not ownership).
//  UserID        – online customer (nil for physical bookings).
//  CustomerName  – walk-in customer name (physical bookings only).
//  CustomerPhone – walk-in customer phone (physical bookings only).
//  Date          – slot date in "2006-01-02" format.
//  StartTime     – slot start in "15:04" format.
//  EndTime       – slot end in "15:04" format.
//  AmountCents   – price computed from venue pricing at creation.
//  Type          – ONLINE or PHYSICAL.
//  Status        – see BookingStatus.
//  ExpiresAt     – hold expiry while PENDING_PAYMENT (nullable).
//  PaymentMethod – gateway identifier reported by the payment collaborator.
//  CreatedAt     – creation timestamp.
type Booking struct {
    ID            string        // bookings.id
    VenueID       uint64        // bookings.venue_id
    SlotID        string        // bookings.slot_id
    UserID        *uint64       // bookings.user_id (nullable)
    CustomerName  string        // bookings.customer_name
    CustomerPhone string        // bookings.customer_phone
    Date          string        // bookings.date
    StartTime     string        // bookings.start_time
    EndTime       string        // bookings.end_time
    AmountCents   uint32        // bookings.amount_cents
    Type          BookingType   // bookings.booking_type
    Status        BookingStatus // bookings.status
    ExpiresAt     *time.Time    // bookings.expires_at (nullable)
    PaymentMethod string        // bookings.payment_method
    CreatedAt     time.Time     // bookings.created_at
}

// Expired reports whether a PENDING_PAYMENT booking's claim has lapsed at
// the given instant. Bookings in any other status never expire.
func (b Booking) Expired(now time.Time) bool {
    return b.Status == BookingPendingPayment && !HoldActive(b.ExpiresAt, now)
}
