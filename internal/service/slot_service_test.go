package service

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/venuely/slot-booking/internal/model"
    "github.com/venuely/slot-booking/internal/repository"
)

func generate(t *testing.T, f *fixture, in GenerateInput) int {
    t.Helper()
    n, err := f.slots.GenerateSlots(context.Background(), in)
    require.NoError(t, err)
    return n
}

func TestGenerateSlotsFullDay(t *testing.T) {
    f := newFixture(t)

    n := generate(t, f, GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID,
        StartTime: "08:00", EndTime: "22:00", DurationMin: 60, Days: 1,
    })
    assert.Equal(t, 14, n, "08:00 through 21:00 inclusive")

    views, err := f.slots.ListSlots(context.Background(), testVenueID, "2026-09-01", "2026-09-01")
    require.NoError(t, err)
    require.Len(t, views, 14)
    assert.Equal(t, "08:00", views[0].StartTime)
    assert.Equal(t, "09:00", views[0].EndTime)
    assert.Equal(t, "21:00", views[13].StartTime)
    assert.Equal(t, "22:00", views[13].EndTime)
    for _, v := range views {
        assert.Equal(t, model.SlotAvailable, v.Status)
    }
}

func TestGenerateSlotsDefaultsAndMultipleDays(t *testing.T) {
    f := newFixture(t)

    n := generate(t, f, GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID,
        StartTime: "08:00", EndTime: "22:00",
    })
    assert.Equal(t, 14*DefaultGenerateDays, n)

    views, err := f.slots.ListSlots(context.Background(), testVenueID, "2026-09-07", "2026-09-07")
    require.NoError(t, err)
    assert.Len(t, views, 14, "seventh day covered")
}

func TestGenerateSlotsIdempotent(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    in := GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID,
        StartTime: "08:00", EndTime: "22:00", DurationMin: 60, Days: 1,
    }
    generate(t, f, in)

    bookingID, err := f.holds.PlaceHold(ctx, PlaceHoldInput{
        VenueID: testVenueID, Date: "2026-09-01", StartTime: "08:00", HolderID: testUserID,
    })
    require.NoError(t, err)

    n := generate(t, f, in)
    assert.Equal(t, 14, n)

    views, err := f.slots.ListSlots(ctx, testVenueID, "2026-09-01", "2026-09-01")
    require.NoError(t, err)
    assert.Len(t, views, 14, "no duplicates")

    slot := f.slot("2026-09-01", "08:00")
    assert.Equal(t, model.SlotHeld, slot.Status, "occupied slot survives regeneration")
    require.NotNil(t, slot.BookingID)
    assert.Equal(t, bookingID, *slot.BookingID)
}

func TestGenerateSlotsGridChange(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    generate(t, f, GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID,
        StartTime: "08:00", EndTime: "22:00", DurationMin: 60, Days: 1,
    })

    // With every slot still AVAILABLE the grid may change freely.
    n := generate(t, f, GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID,
        StartTime: "08:00", EndTime: "22:00", DurationMin: 120, Days: 1,
    })
    assert.Equal(t, 7, n)
    views, err := f.slots.ListSlots(ctx, testVenueID, "2026-09-01", "2026-09-01")
    require.NoError(t, err)
    assert.Len(t, views, 7, "old grid's free slots are dropped")

    // Occupy one slot, then try a grid it does not fit.
    _, err = f.holds.PlaceHold(ctx, PlaceHoldInput{
        VenueID: testVenueID, Date: "2026-09-01", StartTime: "08:00", HolderID: testUserID,
    })
    require.NoError(t, err)

    _, err = f.slots.GenerateSlots(ctx, GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID,
        StartTime: "08:30", EndTime: "22:00", DurationMin: 90, Days: 1,
    })
    require.ErrorIs(t, err, repository.ErrConflict)

    views, err = f.slots.ListSlots(ctx, testVenueID, "2026-09-01", "2026-09-01")
    require.NoError(t, err)
    assert.Len(t, views, 7, "rejected regeneration changes nothing")
}

func TestGenerateSlotsGridChangeDropsLapsedHold(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    generate(t, f, GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID,
        StartTime: "08:00", EndTime: "22:00", DurationMin: 60, Days: 1,
    })

    // Hold 09:00, let it lapse, then switch to a two-hour grid that no
    // longer produces a 09:00 start.
    _, err := f.holds.PlaceHold(ctx, PlaceHoldInput{
        VenueID: testVenueID, Date: "2026-09-01", StartTime: "09:00", HolderID: testUserID,
    })
    require.NoError(t, err)
    f.clk.Advance(6 * time.Minute)

    n := generate(t, f, GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID,
        StartTime: "08:00", EndTime: "22:00", DurationMin: 120, Days: 1,
    })
    assert.Equal(t, 7, n)

    views, err := f.slots.ListSlots(ctx, testVenueID, "2026-09-01", "2026-09-01")
    require.NoError(t, err)
    require.Len(t, views, 7, "the lapsed hold's row does not outlive the old grid")
    for _, v := range views {
        assert.Equal(t, model.SlotAvailable, v.Status)
        assert.NotEqual(t, "09:00", v.StartTime)
    }
    _, err = f.store.GetByID(model.SlotID(testVenueID, "2026-09-01", "09:00"))
    assert.ErrorIs(t, err, repository.ErrSlotNotFound)
}

func TestGenerateSlotsValidation(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()

    _, err := f.slots.GenerateSlots(ctx, GenerateInput{
        ManagerID: 777, VenueID: testVenueID, StartTime: "08:00", EndTime: "22:00",
    })
    assert.ErrorIs(t, err, repository.ErrForbidden)

    _, err = f.slots.GenerateSlots(ctx, GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID, StartTime: "bogus", EndTime: "22:00",
    })
    assert.Error(t, err)

    _, err = f.slots.GenerateSlots(ctx, GenerateInput{
        ManagerID: testManagerID, VenueID: testVenueID, StartTime: "22:00", EndTime: "08:00",
    })
    assert.Error(t, err, "empty daily window")
}

func TestListSlotsEffectiveStatus(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.addSlot("2026-09-01", "08:00", "09:00")
    f.addSlot("2026-09-01", "09:00", "10:00")

    _, err := f.holds.PlaceHold(ctx, PlaceHoldInput{
        VenueID: testVenueID, Date: "2026-09-01", StartTime: "08:00", HolderID: testUserID,
    })
    require.NoError(t, err)

    views, err := f.slots.ListSlots(ctx, testVenueID, "2026-09-01", "2026-09-01")
    require.NoError(t, err)
    require.Len(t, views, 2)
    assert.Equal(t, model.SlotHeld, views[0].Status)
    assert.NotNil(t, views[0].HoldExpiresAt)
    assert.Equal(t, model.SlotAvailable, views[1].Status)

    // After the hold lapses the same row reads AVAILABLE without any write.
    f.clk.Advance(6 * time.Minute)
    views, err = f.slots.ListSlots(ctx, testVenueID, "2026-09-01", "2026-09-01")
    require.NoError(t, err)
    assert.Equal(t, model.SlotAvailable, views[0].Status)
    assert.Nil(t, views[0].HoldExpiresAt, "lapsed expiry is not exposed")
}

func TestVenueAvailability(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.addSlot("2026-09-01", "08:00", "09:00")

    _, err := f.holds.PlaceHold(ctx, PlaceHoldInput{
        VenueID: testVenueID, Date: "2026-09-01", StartTime: "08:00", HolderID: testUserID,
    })
    require.NoError(t, err)
    require.NoError(t, f.coord.BlockSlot(ctx, BlockInput{
        ManagerID: testManagerID, VenueID: testVenueID, Date: "2026-09-01", StartTime: "12:00",
    }))

    av, err := f.slots.VenueAvailability(ctx, testVenueID)
    require.NoError(t, err)
    assert.Equal(t, testVenueID, av.VenueID)
    require.Len(t, av.Held, 1)
    assert.Equal(t, "08:00", av.Held[0].StartTime)
    assert.Len(t, av.Blocked, 1)
    assert.Empty(t, av.Bookings)
}

func TestVenueAvailabilityFiltersLapsedHolds(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.addSlot("2026-09-01", "08:00", "09:00")
    _, err := f.holds.PlaceHold(ctx, PlaceHoldInput{
        VenueID: testVenueID, Date: "2026-09-01", StartTime: "08:00", HolderID: testUserID,
    })
    require.NoError(t, err)

    f.clk.Advance(6 * time.Minute)
    av, err := f.slots.VenueAvailability(ctx, testVenueID)
    require.NoError(t, err)
    assert.Empty(t, av.Held, "lapsed mirror entries are filtered on read")
}

func TestVenueAvailabilitySelfHealing(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    slot := f.addSlot("2026-09-01", "08:00", "09:00")

    // The mirror still advertises a hold, but the slot store says BOOKED.
    bookingID := "paid-booking"
    slot.Status = model.SlotBooked
    slot.BookingID = &bookingID
    require.NoError(t, f.store.UpdateState(ctx, slot))
    require.NoError(t, f.mirror.UpsertHeld(ctx, testVenueID, model.HeldEntry{
        Date: "2026-09-01", StartTime: "08:00", HolderID: testUserID,
        ExpiresAt: baseTime.Add(5 * time.Minute), BookingID: "stale",
    }))

    av, err := f.slots.VenueAvailability(ctx, testVenueID)
    require.NoError(t, err)
    assert.Empty(t, av.Held, "slot store wins over the stale mirror entry")
    require.Len(t, av.Bookings, 1)
    assert.Equal(t, bookingID, av.Bookings[0].BookingID)
    assert.Equal(t, model.BookingOnline, av.Bookings[0].Type)

    // An entry with no backing slot at all is silently dropped.
    require.NoError(t, f.mirror.UpsertHeld(ctx, testVenueID, model.HeldEntry{
        Date: "2026-09-02", StartTime: "08:00", HolderID: testUserID,
        ExpiresAt: baseTime.Add(5 * time.Minute),
    }))
    av, err = f.slots.VenueAvailability(ctx, testVenueID)
    require.NoError(t, err)
    assert.Empty(t, av.Held)
}

func TestVenueAvailabilityMirrorDown(t *testing.T) {
    f := newFixture(t)
    f.mirror.err = errors.New("redis down")

    _, err := f.slots.VenueAvailability(context.Background(), testVenueID)
    assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestRebuildMirror(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.addSlot("2026-09-01", "08:00", "09:00")
    f.addSlot("2026-09-01", "09:00", "10:00")
    f.addSlot("2026-09-01", "10:00", "11:00")

    heldID, err := f.holds.PlaceHold(ctx, PlaceHoldInput{
        VenueID: testVenueID, Date: "2026-09-01", StartTime: "08:00", HolderID: testUserID,
    })
    require.NoError(t, err)
    bookedID, err := f.holds.PlaceHold(ctx, PlaceHoldInput{
        VenueID: testVenueID, Date: "2026-09-01", StartTime: "09:00", HolderID: 101,
    })
    require.NoError(t, err)
    _, err = f.coord.ConfirmPayment(ctx, bookedID)
    require.NoError(t, err)
    require.NoError(t, f.coord.BlockSlot(ctx, BlockInput{
        ManagerID: testManagerID, VenueID: testVenueID, Date: "2026-09-01", StartTime: "12:00",
    }))

    // Wipe the mirror lists to simulate drift, keeping only the block.
    doc, _ := f.mirror.Get(ctx, testVenueID)
    doc.Held = nil
    doc.Bookings = nil
    require.NoError(t, f.mirror.Put(ctx, doc))

    require.NoError(t, f.slots.RebuildMirror(ctx, testVenueID))

    doc, _ = f.mirror.Get(ctx, testVenueID)
    require.Len(t, doc.Held, 1)
    assert.Equal(t, heldID, doc.Held[0].BookingID)
    require.Len(t, doc.Bookings, 1)
    assert.Equal(t, bookedID, doc.Bookings[0].BookingID)
    require.Len(t, doc.Blocked, 1, "blocks live only in the mirror and are preserved")
}
