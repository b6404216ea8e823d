// Package repository defines the data access layer over MySQL together
// with the sentinel error taxonomy shared by every repository. Handlers
// translate these sentinels into HTTP status codes; services wrap them
// with detail using fmt.Errorf("%w: ...") so errors.Is keeps working.
package repository

import "errors"

// ErrSlotNotFound is returned when no slot exists for the requested
// (venue, date, start time) identity. Handlers map it to 404.
var ErrSlotNotFound = errors.New("slot not found")

// ErrBookingNotFound is returned when a booking ID resolves to nothing.
// Handlers map it to 404.
var ErrBookingNotFound = errors.New("booking not found")

// ErrVenueNotFound is returned when a venue ID resolves to nothing.
// Handlers map it to 404.
var ErrVenueNotFound = errors.New("venue not found")

// ErrConflict is returned when an operation loses to existing state: the
// slot is already held or booked, a block collides with a booking, or a
// manager tries to remove an online booking. Clients should pick another
// slot rather than retry. Handlers map it to 409.
var ErrConflict = errors.New("conflict")

// ErrExpired is returned when a payment confirmation arrives after the
// hold lapsed. The claim is gone; the client must restart from a new
// hold. Handlers map it to 410.
var ErrExpired = errors.New("expired")

// ErrForbidden is returned when the caller's role or venue ownership does
// not permit a manager-direct operation. It is raised before any venue
// state is read. Handlers map it to 403.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registration collides with an existing
// email. Handlers map it to 409.
var ErrEmailExists = errors.New("email already exists")

// ErrUnavailable is returned when the transactional store cannot be
// reached. Handlers map it to 503.
var ErrUnavailable = errors.New("store unavailable")
