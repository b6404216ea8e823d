package service

import (
    "context"
    "fmt"
    "time"

    "github.com/google/uuid"
    "github.com/sirupsen/logrus"

    "github.com/venuely/slot-booking/internal/clock"
    "github.com/venuely/slot-booking/internal/model"
    "github.com/venuely/slot-booking/internal/repository"
)

// DefaultHoldTTL is how long a customer's exclusive claim on a slot lives
// before payment must arrive.
const DefaultHoldTTL = 5 * time.Minute

// MaxHoldTTL caps the per-call hold duration. The cap keeps the lazy
// expiry rule meaningful: without it a caller could park a slot
// indefinitely without paying and no contender could ever reclaim it.
const MaxHoldTTL = 15 * time.Minute

// HoldService grants and releases short-lived exclusive holds on slots.
// A hold is the only way an online customer claims a slot; its expiry is
// enforced lazily at the next read of the slot, never by a background
// sweeper, so an abandoned hold can delay but never permanently block the
// next contender.
type HoldService struct {
    tx       Tx
    slots    SlotStore
    bookings BookingStore
    venues   VenueStore
    mirror   Mirror
    clock    clock.Clock
    holdTTL  time.Duration
    log      logrus.FieldLogger
}

// NewHoldService constructs a HoldService.
func NewHoldService(tx Tx, slots SlotStore, bookings BookingStore, venues VenueStore, mirror Mirror, clk clock.Clock, log logrus.FieldLogger, opts ...HoldServiceOption) *HoldService {
    svc := &HoldService{
        tx:       tx,
        slots:    slots,
        bookings: bookings,
        venues:   venues,
        mirror:   mirror,
        clock:    clk,
        holdTTL:  DefaultHoldTTL,
        log:      log,
    }
    for _, opt := range opts {
        opt(svc)
    }
    return svc
}

// HoldServiceOption customizes a HoldService.
type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default hold duration.
func WithHoldTTL(d time.Duration) HoldServiceOption {
    return func(s *HoldService) {
        if d > 0 {
            s.holdTTL = d
        }
    }
}

// PlaceHoldInput identifies the slot to claim and who is claiming it.
// DurationMin overrides the configured TTL when positive; values above
// MaxHoldTTL are clamped because the field arrives from untrusted input.
type PlaceHoldInput struct {
    VenueID     uint64
    Date        string
    StartTime   string
    HolderID    uint64
    DurationMin int
}

// PlaceHold atomically claims the slot for the holder and creates the
// PENDING_PAYMENT booking that mirrors the hold. The whole check-and-set
// runs under the slot's row lock:
//
//   AVAILABLE            -> proceed
//   HELD, hold lapsed    -> reclaim and proceed
//   HELD, hold live      -> Conflict "currently held"
//   RESERVED or BOOKED   -> Conflict "not available"
//
// Two concurrent calls on the same slot serialize on the lock; exactly
// one wins. The returned booking ID is the handle the payment
// collaborator later confirms. The mirror upsert is attempted only after
// commit and its failure is logged, never surfaced.
func (s *HoldService) PlaceHold(ctx context.Context, in PlaceHoldInput) (string, error) {
    venue, err := s.venues.GetByID(ctx, in.VenueID)
    if err != nil {
        return "", err
    }

    ttl := s.holdTTL
    if in.DurationMin > 0 {
        ttl = time.Duration(in.DurationMin) * time.Minute
        if ttl > MaxHoldTTL {
            ttl = MaxHoldTTL
        }
    }

    var booking model.Booking
    err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
        slot, err := s.slots.GetForUpdate(txCtx, in.VenueID, in.Date, in.StartTime)
        if err != nil {
            return err
        }
        now := s.clock.Now()
        switch model.EffectiveSlotStatus(slot, now) {
        case model.SlotAvailable:
            // proceed; a lapsed hold is reclaimed by overwriting it
        case model.SlotHeld:
            return fmt.Errorf("%w: currently held", repository.ErrConflict)
        default:
            return fmt.Errorf("%w: not available", repository.ErrConflict)
        }

        expires := now.Add(ttl)
        holderID := in.HolderID
        booking = model.Booking{
            ID:          uuid.NewString(),
            VenueID:     in.VenueID,
            SlotID:      slot.ID,
            UserID:      &holderID,
            Date:        slot.Date,
            StartTime:   slot.StartTime,
            EndTime:     slot.EndTime,
            AmountCents: venue.SlotPriceCents(slotMinutes(slot, venue)),
            Type:        model.BookingOnline,
            Status:      model.BookingPendingPayment,
            ExpiresAt:   &expires,
            CreatedAt:   now,
        }
        if err := s.bookings.Create(txCtx, &booking); err != nil {
            return err
        }

        slot.Status = model.SlotHeld
        slot.HeldBy = &holderID
        slot.HoldExpiresAt = &expires
        slot.BookingID = &booking.ID
        return s.slots.UpdateState(txCtx, slot)
    })
    if err != nil {
        return "", err
    }

    if merr := s.mirror.UpsertHeld(ctx, in.VenueID, model.HeldEntry{
        Date:      booking.Date,
        StartTime: booking.StartTime,
        HolderID:  in.HolderID,
        ExpiresAt: *booking.ExpiresAt,
        BookingID: booking.ID,
    }); merr != nil {
        s.log.WithError(merr).WithFields(logrus.Fields{
            "venue_id": in.VenueID,
            "date":     booking.Date,
            "start":    booking.StartTime,
        }).Warn("mirror upsert after hold failed")
    }
    return booking.ID, nil
}

// ReleaseHold removes a matching held entry from the venue mirror. It is
// idempotent and unauthenticated by design: releasing only frees display
// capacity, never grants any. The slot store record is untouched; its own
// hold lapses through the expiry check on the next contender's PlaceHold,
// which avoids racing two sources of truth.
func (s *HoldService) ReleaseHold(ctx context.Context, venueID uint64, date, startTime string) error {
    if err := s.mirror.RemoveHeld(ctx, venueID, date, startTime); err != nil {
        s.log.WithError(err).WithFields(logrus.Fields{
            "venue_id": venueID,
            "date":     date,
            "start":    startTime,
        }).Warn("mirror release failed")
    }
    return nil
}

// slotMinutes derives the billable minutes for a slot from its window,
// falling back to the venue default when the window cannot be parsed.
func slotMinutes(slot model.Slot, venue model.Venue) int {
    start, err1 := time.Parse("15:04", slot.StartTime)
    end, err2 := time.Parse("15:04", slot.EndTime)
    if err1 != nil || err2 != nil || !end.After(start) {
        return venue.SlotDurationMin
    }
    return int(end.Sub(start) / time.Minute)
}
