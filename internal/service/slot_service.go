package service

import (
    "context"
    "fmt"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/venuely/slot-booking/internal/clock"
    "github.com/venuely/slot-booking/internal/model"
    "github.com/venuely/slot-booking/internal/repository"
)

// Defaults for slot generation when the caller omits them.
const (
    DefaultSlotDurationMin = 60
    DefaultGenerateDays    = 7
)

// SlotService owns slot generation and the read side: effective-status
// listings straight from the slot store and the mirror-backed fast
// availability snapshot.
type SlotService struct {
    tx     Tx
    slots  SlotStore
    venues VenueStore
    mirror Mirror
    clock  clock.Clock
    log    logrus.FieldLogger
}

// NewSlotService constructs a SlotService.
func NewSlotService(tx Tx, slots SlotStore, venues VenueStore, mirror Mirror, clk clock.Clock, log logrus.FieldLogger) *SlotService {
    return &SlotService{tx: tx, slots: slots, venues: venues, mirror: mirror, clock: clk, log: log}
}

// GenerateInput describes a slot generation request. StartTime and
// EndTime bound the daily window in "15:04" format; zero DurationMin and
// Days fall back to the defaults.
type GenerateInput struct {
    ManagerID   uint64
    VenueID     uint64
    StartTime   string
    EndTime     string
    DurationMin int
    Days        int
}

// GenerateSlots creates slot records for every window position over the
// requested number of days starting today. Identities are deterministic,
// so repeating a call is idempotent: existing rows survive untouched.
//
// Changing the grid (window or duration) for dates that already have
// slots is allowed only while every affected slot is effectively
// AVAILABLE; stale free slots from the old grid, lapsed holds included,
// are dropped and the new grid inserted. If any slot in the range is
// held, reserved or booked on
// a start time the new grid does not produce, the call fails with
// Conflict and changes nothing.
func (s *SlotService) GenerateSlots(ctx context.Context, in GenerateInput) (int, error) {
    venue, err := s.venues.GetByID(ctx, in.VenueID)
    if err != nil {
        return 0, err
    }
    if venue.ManagerID != in.ManagerID {
        return 0, repository.ErrForbidden
    }

    duration := in.DurationMin
    if duration <= 0 {
        duration = DefaultSlotDurationMin
    }
    days := in.Days
    if days <= 0 {
        days = DefaultGenerateDays
    }
    dayStart, err := time.Parse("15:04", in.StartTime)
    if err != nil {
        return 0, fmt.Errorf("invalid start time %q: %w", in.StartTime, err)
    }
    dayEnd, err := time.Parse("15:04", in.EndTime)
    if err != nil {
        return 0, fmt.Errorf("invalid end time %q: %w", in.EndTime, err)
    }
    if !dayEnd.After(dayStart) {
        return 0, fmt.Errorf("daily window %s-%s is empty", in.StartTime, in.EndTime)
    }

    today := s.clock.Now()
    step := time.Duration(duration) * time.Minute

    var slots []model.Slot
    dates := make([]string, 0, days)
    starts := make(map[string]string) // start -> end within one day
    for cursor := dayStart; !cursor.Add(step).After(dayEnd); cursor = cursor.Add(step) {
        starts[cursor.Format("15:04")] = cursor.Add(step).Format("15:04")
    }
    for d := 0; d < days; d++ {
        date := today.AddDate(0, 0, d).Format("2006-01-02")
        dates = append(dates, date)
        for start, end := range starts {
            slots = append(slots, model.Slot{
                ID:        model.SlotID(in.VenueID, date, start),
                VenueID:   in.VenueID,
                Date:      date,
                StartTime: start,
                EndTime:   end,
                Status:    model.SlotAvailable,
            })
        }
    }

    err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
        existing, err := s.slots.ListByVenueRange(txCtx, in.VenueID, dates[0], dates[len(dates)-1])
        if err != nil {
            return err
        }
        now := s.clock.Now()
        for _, sl := range existing {
            if model.EffectiveSlotStatus(sl, now) == model.SlotAvailable {
                if sl.Status != model.SlotAvailable {
                    // A lapsed hold counts as free; clear it here so the
                    // delete below can drop the row when the new grid no
                    // longer produces its start time.
                    sl.Status = model.SlotAvailable
                    sl.HeldBy = nil
                    sl.HoldExpiresAt = nil
                    sl.BookingID = nil
                    if err := s.slots.UpdateState(txCtx, sl); err != nil {
                        return err
                    }
                }
                continue
            }
            if end, ok := starts[sl.StartTime]; !ok || end != sl.EndTime {
                return fmt.Errorf("%w: occupied slot %s %s does not fit new grid", repository.ErrConflict, sl.Date, sl.StartTime)
            }
        }
        if err := s.slots.DeleteAvailableInDates(txCtx, in.VenueID, dates); err != nil {
            return err
        }
        return s.slots.CreateBulk(txCtx, slots)
    })
    if err != nil {
        return 0, err
    }
    return len(slots), nil
}

// SlotView is the public shape of a slot with its effective status
// already computed; clients never see a lapsed hold.
type SlotView struct {
    Date          string           `json:"date"`
    StartTime     string           `json:"start_time"`
    EndTime       string           `json:"end_time"`
    Status        model.SlotStatus `json:"status"`
    HoldExpiresAt *time.Time       `json:"hold_expires_at,omitempty"`
}

// ListSlots returns a venue's slots for a date range with effective
// statuses, straight from the slot store.
func (s *SlotService) ListSlots(ctx context.Context, venueID uint64, fromDate, toDate string) ([]SlotView, error) {
    slots, err := s.slots.ListByVenueRange(ctx, venueID, fromDate, toDate)
    if err != nil {
        return nil, err
    }
    now := s.clock.Now()
    out := make([]SlotView, 0, len(slots))
    for _, sl := range slots {
        eff := model.EffectiveSlotStatus(sl, now)
        v := SlotView{Date: sl.Date, StartTime: sl.StartTime, EndTime: sl.EndTime, Status: eff}
        if eff == model.SlotHeld {
            v.HoldExpiresAt = sl.HoldExpiresAt
        }
        out = append(out, v)
    }
    return out, nil
}

// Availability is the mirror-backed snapshot served to availability
// screens: what is held, reserved, booked and blocked right now.
type Availability struct {
    VenueID  uint64               `json:"venue_id"`
    Held     []model.HeldEntry    `json:"held"`
    Bookings []model.BookingEntry `json:"bookings"`
    Blocked  []model.BlockEntry   `json:"blocked"`
}

// VenueAvailability serves the fast availability read. The mirror is
// stale by construction, so the snapshot self-heals before leaving:
// lapsed held entries are filtered with the shared expiry rule, and every
// surviving held entry is cross-checked against the slot store — when the
// two disagree the slot store wins, so a slot the store says is BOOKED is
// reported booked even if the mirror still shows a hold.
func (s *SlotService) VenueAvailability(ctx context.Context, venueID uint64) (Availability, error) {
    doc, err := s.mirror.Get(ctx, venueID)
    if err != nil {
        return Availability{}, fmt.Errorf("%w: mirror read failed", repository.ErrUnavailable)
    }
    now := s.clock.Now()
    out := Availability{
        VenueID:  venueID,
        Held:     make([]model.HeldEntry, 0, len(doc.Held)),
        Bookings: doc.Bookings,
        Blocked:  doc.Blocked,
    }
    if out.Bookings == nil {
        out.Bookings = []model.BookingEntry{}
    }
    if out.Blocked == nil {
        out.Blocked = []model.BlockEntry{}
    }
    for _, e := range doc.ActiveHeld(now) {
        slot, err := s.slots.Get(ctx, venueID, e.Date, e.StartTime)
        if err != nil {
            // Slot store unreachable or entry orphaned: drop the entry
            // rather than advertise a hold the store cannot confirm.
            continue
        }
        switch model.EffectiveSlotStatus(slot, now) {
        case model.SlotHeld:
            out.Held = append(out.Held, e)
        case model.SlotBooked, model.SlotReserved:
            if !out.hasBooking(e.Date, e.StartTime) {
                var id string
                if slot.BookingID != nil {
                    id = *slot.BookingID
                }
                bType := model.BookingOnline
                if slot.Status == model.SlotReserved {
                    bType = model.BookingPhysical
                }
                out.Bookings = append(out.Bookings, model.BookingEntry{
                    Date:      e.Date,
                    StartTime: e.StartTime,
                    BookingID: id,
                    Type:      bType,
                })
            }
        }
        // effectively AVAILABLE: stale entry, silently dropped
    }
    return out, nil
}

func (a *Availability) hasBooking(date, startTime string) bool {
    for _, b := range a.Bookings {
        if b.Date == date && b.StartTime == startTime {
            return true
        }
    }
    return false
}

// RebuildMirror regenerates a venue's mirror document from slot store
// truth. It is the recovery tool for mirror drift: blocks are preserved
// (they live only in the mirror) while held and booking lists are rebuilt
// from the occupied slots.
func (s *SlotService) RebuildMirror(ctx context.Context, venueID uint64) error {
    occupied, err := s.slots.ListOccupiedByVenue(ctx, venueID)
    if err != nil {
        return err
    }
    old, err := s.mirror.Get(ctx, venueID)
    if err != nil {
        return fmt.Errorf("%w: mirror read failed", repository.ErrUnavailable)
    }
    doc := model.VenueMirror{VenueID: venueID, Blocked: old.Blocked}
    now := s.clock.Now()
    for _, sl := range occupied {
        var bookingID string
        if sl.BookingID != nil {
            bookingID = *sl.BookingID
        }
        switch model.EffectiveSlotStatus(sl, now) {
        case model.SlotHeld:
            var holder uint64
            if sl.HeldBy != nil {
                holder = *sl.HeldBy
            }
            doc.UpsertHeld(model.HeldEntry{
                Date:      sl.Date,
                StartTime: sl.StartTime,
                HolderID:  holder,
                ExpiresAt: *sl.HoldExpiresAt,
                BookingID: bookingID,
            })
        case model.SlotBooked:
            doc.UpsertBooking(model.BookingEntry{Date: sl.Date, StartTime: sl.StartTime, BookingID: bookingID, Type: model.BookingOnline})
        case model.SlotReserved:
            doc.UpsertBooking(model.BookingEntry{Date: sl.Date, StartTime: sl.StartTime, BookingID: bookingID, Type: model.BookingPhysical})
        }
    }
    return s.mirror.Put(ctx, doc)
}
