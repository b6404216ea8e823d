package service

import (
    "context"
    "fmt"

    "github.com/google/uuid"
    "github.com/sirupsen/logrus"

    "github.com/venuely/slot-booking/internal/clock"
    "github.com/venuely/slot-booking/internal/model"
    "github.com/venuely/slot-booking/internal/repository"
)

// BookingService is the booking transaction coordinator. It owns every
// state transition that converts a hold into a booking and every
// manager-direct mutation, validating each move against the closed
// transition tables before committing. Mirror writes and event publishing
// always happen after the primary transaction commits and can only be
// logged, never fail the operation.
type BookingService struct {
    tx       Tx
    slots    SlotStore
    bookings BookingStore
    venues   VenueStore
    mirror   Mirror
    events   EventPublisher
    clock    clock.Clock
    log      logrus.FieldLogger
}

// NewBookingService constructs a BookingService. events may be nil when no
// broker is configured.
func NewBookingService(tx Tx, slots SlotStore, bookings BookingStore, venues VenueStore, mirror Mirror, events EventPublisher, clk clock.Clock, log logrus.FieldLogger) *BookingService {
    return &BookingService{
        tx:       tx,
        slots:    slots,
        bookings: bookings,
        venues:   venues,
        mirror:   mirror,
        events:   events,
        clock:    clk,
        log:      log,
    }
}

// ConfirmResult reports the outcome of a payment confirmation.
// AlreadyConfirmed distinguishes a repeated delivery of the same payment
// event from a first-time confirmation; both are successes.
type ConfirmResult struct {
    BookingID        string
    AlreadyConfirmed bool
}

// ConfirmPayment is invoked by the payment event consumer when the
// gateway reports success. Atomically it verifies the booking is still a
// live PENDING_PAYMENT claim and, in the same unit, advances the booking
// to CONFIRMED and the slot to BOOKED. This is the only path from HELD to
// BOOKED.
//
// An expired claim fails with Expired and mutates nothing: a late payment
// must never resurrect a hold another customer may have reclaimed. A
// booking that is already CONFIRMED reports AlreadyConfirmed instead of
// erroring, so redelivered payment events are harmless.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID string) (ConfirmResult, error) {
    res := ConfirmResult{BookingID: bookingID}
    var booking model.Booking
    err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
        b, err := s.bookings.GetByIDForUpdate(txCtx, bookingID)
        if err != nil {
            return err
        }
        if b.Status == model.BookingConfirmed || b.Status == model.BookingCompleted {
            res.AlreadyConfirmed = true
            return nil
        }
        if b.Status != model.BookingPendingPayment {
            return fmt.Errorf("%w: booking is %s", repository.ErrConflict, b.Status)
        }
        now := s.clock.Now()
        if b.Expired(now) {
            return fmt.Errorf("%w: hold lapsed before payment", repository.ErrExpired)
        }

        slot, err := s.slots.GetByIDForUpdate(txCtx, b.SlotID)
        if err != nil {
            return err
        }
        // The slot may have been reclaimed by a later contender between the
        // hold lapsing and this event arriving; the back-reference is the
        // tiebreaker.
        if slot.BookingID == nil || *slot.BookingID != b.ID {
            return fmt.Errorf("%w: hold superseded", repository.ErrExpired)
        }
        if !slot.Status.CanTransition(model.SlotBooked) {
            return fmt.Errorf("%w: slot is %s", repository.ErrConflict, slot.Status)
        }

        if err := s.bookings.UpdateStatus(txCtx, b.ID, model.BookingConfirmed); err != nil {
            return err
        }
        slot.Status = model.SlotBooked
        slot.HeldBy = nil
        slot.HoldExpiresAt = nil
        if err := s.slots.UpdateState(txCtx, slot); err != nil {
            return err
        }
        b.Status = model.BookingConfirmed
        booking = b
        return nil
    })
    if err != nil {
        return ConfirmResult{}, err
    }
    if res.AlreadyConfirmed {
        return res, nil
    }

    if merr := s.mirror.UpsertBooking(ctx, booking.VenueID, model.BookingEntry{
        Date:      booking.Date,
        StartTime: booking.StartTime,
        BookingID: booking.ID,
        Type:      booking.Type,
    }); merr != nil {
        s.log.WithError(merr).WithField("booking_id", booking.ID).Warn("mirror upsert after confirmation failed")
    }
    if s.events != nil {
        if perr := s.events.BookingConfirmed(ctx, booking); perr != nil {
            s.log.WithError(perr).WithField("booking_id", booking.ID).Warn("publish booking.confirmed failed")
        }
    }
    return res, nil
}

// FailPayment is invoked when the gateway reports a failed or abandoned
// payment. It cancels a still-pending booking and frees the slot in the
// same atomic unit. Bookings that already left PENDING_PAYMENT, or whose
// slot was reclaimed, are left alone: the operation is idempotent.
func (s *BookingService) FailPayment(ctx context.Context, bookingID string) error {
    var booking model.Booking
    var freed bool
    err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
        b, err := s.bookings.GetByIDForUpdate(txCtx, bookingID)
        if err != nil {
            return err
        }
        if b.Status != model.BookingPendingPayment {
            return nil
        }
        if err := s.bookings.UpdateStatus(txCtx, b.ID, model.BookingCancelled); err != nil {
            return err
        }
        slot, err := s.slots.GetByIDForUpdate(txCtx, b.SlotID)
        if err != nil {
            return err
        }
        if slot.BookingID != nil && *slot.BookingID == b.ID && slot.Status == model.SlotHeld {
            slot.Status = model.SlotAvailable
            slot.HeldBy = nil
            slot.HoldExpiresAt = nil
            slot.BookingID = nil
            if err := s.slots.UpdateState(txCtx, slot); err != nil {
                return err
            }
            freed = true
        }
        booking = b
        return nil
    })
    if err != nil {
        return err
    }
    if freed {
        if merr := s.mirror.RemoveHeld(ctx, booking.VenueID, booking.Date, booking.StartTime); merr != nil {
            s.log.WithError(merr).WithField("booking_id", booking.ID).Warn("mirror release after failed payment failed")
        }
    }
    return nil
}

// ReserveInput describes a manager-entered physical booking.
type ReserveInput struct {
    ManagerID     uint64
    VenueID       uint64
    Date          string
    StartTime     string
    CustomerName  string
    CustomerPhone string
}

// ReserveSlot creates a physical booking on behalf of a walk-in or phone
// customer, bypassing the hold step. The slot moves to RESERVED and the
// booking is CONFIRMED immediately. A lapsed hold is reclaimed like
// anywhere else; a live hold, a reservation or a paid booking wins with
// Conflict, per the transition table.
func (s *BookingService) ReserveSlot(ctx context.Context, in ReserveInput) (string, error) {
    venue, err := s.authorizeManager(ctx, in.ManagerID, in.VenueID)
    if err != nil {
        return "", err
    }

    var booking model.Booking
    err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
        slot, err := s.slots.GetForUpdate(txCtx, in.VenueID, in.Date, in.StartTime)
        if err != nil {
            return err
        }
        now := s.clock.Now()
        eff := model.EffectiveSlotStatus(slot, now)
        if !eff.CanTransition(model.SlotReserved) {
            if eff == model.SlotHeld {
                return fmt.Errorf("%w: currently held", repository.ErrConflict)
            }
            return fmt.Errorf("%w: not available", repository.ErrConflict)
        }

        booking = model.Booking{
            ID:            uuid.NewString(),
            VenueID:       in.VenueID,
            SlotID:        slot.ID,
            CustomerName:  in.CustomerName,
            CustomerPhone: in.CustomerPhone,
            Date:          slot.Date,
            StartTime:     slot.StartTime,
            EndTime:       slot.EndTime,
            AmountCents:   venue.SlotPriceCents(slotMinutes(slot, venue)),
            Type:          model.BookingPhysical,
            Status:        model.BookingConfirmed,
            CreatedAt:     now,
        }
        if err := s.bookings.Create(txCtx, &booking); err != nil {
            return err
        }
        slot.Status = model.SlotReserved
        slot.HeldBy = nil
        slot.HoldExpiresAt = nil
        slot.BookingID = &booking.ID
        return s.slots.UpdateState(txCtx, slot)
    })
    if err != nil {
        return "", err
    }

    if merr := s.mirror.UpsertBooking(ctx, in.VenueID, model.BookingEntry{
        Date:         booking.Date,
        StartTime:    booking.StartTime,
        BookingID:    booking.ID,
        Type:         model.BookingPhysical,
        CustomerName: in.CustomerName,
    }); merr != nil {
        s.log.WithError(merr).WithField("booking_id", booking.ID).Warn("mirror upsert after reservation failed")
    }
    return booking.ID, nil
}

// BlockInput describes a manager block on a slot.
type BlockInput struct {
    ManagerID uint64
    VenueID   uint64
    Date      string
    StartTime string
    Reason    string
}

// BlockSlot inserts a block entry into the venue mirror unless a booking
// already occupies the slot. Blocks are a display-level manager
// convenience and live only in the mirror; the eventual-consistency risk
// is accepted by design.
func (s *BookingService) BlockSlot(ctx context.Context, in BlockInput) error {
    if _, err := s.authorizeManager(ctx, in.ManagerID, in.VenueID); err != nil {
        return err
    }
    doc, err := s.mirror.Get(ctx, in.VenueID)
    if err != nil {
        return fmt.Errorf("%w: mirror read failed", repository.ErrUnavailable)
    }
    if doc.HasBooking(in.Date, in.StartTime) {
        return fmt.Errorf("%w: booked", repository.ErrConflict)
    }
    return s.mirror.UpsertBlock(ctx, in.VenueID, model.BlockEntry{
        Date:      in.Date,
        StartTime: in.StartTime,
        Reason:    in.Reason,
        BlockedBy: in.ManagerID,
        BlockedAt: s.clock.Now(),
    })
}

// UnblockSlot removes a block entry. Idempotent; unblocking a slot that
// was never blocked is a no-op.
func (s *BookingService) UnblockSlot(ctx context.Context, managerID, venueID uint64, date, startTime string) error {
    if _, err := s.authorizeManager(ctx, managerID, venueID); err != nil {
        return err
    }
    return s.mirror.RemoveBlock(ctx, venueID, date, startTime)
}

// UnbookSlot removes a physical booking and returns its slot to
// AVAILABLE in one atomic unit. Online bookings are money: they cannot be
// removed this way and fail with Conflict, leaving all state untouched.
// Mirror cleanup follows the commit and is best-effort.
func (s *BookingService) UnbookSlot(ctx context.Context, managerID, venueID uint64, bookingID string) error {
    if _, err := s.authorizeManager(ctx, managerID, venueID); err != nil {
        return err
    }
    var booking model.Booking
    err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
        b, err := s.bookings.GetByIDForUpdate(txCtx, bookingID)
        if err != nil {
            return err
        }
        if b.VenueID != venueID {
            return repository.ErrBookingNotFound
        }
        if b.Type != model.BookingPhysical {
            return fmt.Errorf("%w: online bookings cannot be removed", repository.ErrConflict)
        }
        if err := s.bookings.Delete(txCtx, b.ID); err != nil {
            return err
        }
        slot, err := s.slots.GetByIDForUpdate(txCtx, b.SlotID)
        if err != nil {
            return err
        }
        if slot.BookingID != nil && *slot.BookingID == b.ID {
            slot.Status = model.SlotAvailable
            slot.HeldBy = nil
            slot.HoldExpiresAt = nil
            slot.BookingID = nil
            if err := s.slots.UpdateState(txCtx, slot); err != nil {
                return err
            }
        }
        booking = b
        return nil
    })
    if err != nil {
        return err
    }
    if merr := s.mirror.RemoveBooking(ctx, venueID, booking.Date, booking.StartTime); merr != nil {
        s.log.WithError(merr).WithField("booking_id", booking.ID).Warn("mirror cleanup after unbook failed")
    }
    return nil
}

// authorizeManager verifies the caller manages the venue before any
// business state is read. Role membership is checked at the transport
// layer; this enforces per-venue ownership the same way for every
// manager-direct operation.
func (s *BookingService) authorizeManager(ctx context.Context, managerID, venueID uint64) (model.Venue, error) {
    venue, err := s.venues.GetByID(ctx, venueID)
    if err != nil {
        return model.Venue{}, err
    }
    if venue.ManagerID != managerID {
        return model.Venue{}, repository.ErrForbidden
    }
    return venue, nil
}
