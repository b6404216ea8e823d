package service

import (
    "context"
    "io"
    "sort"
    "sync"
    "testing"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/venuely/slot-booking/internal/clock"
    "github.com/venuely/slot-booking/internal/model"
    "github.com/venuely/slot-booking/internal/repository"
)

// fakeStore is an in-memory stand-in for the MySQL repositories. WithTx
// serializes transactions on a single mutex, which models the row-lock
// exclusion the real store provides, and restores a snapshot on error so
// failed transactions roll back completely.
type fakeStore struct {
    txMu sync.Mutex
    mu   sync.Mutex

    slots    map[string]model.Slot
    bookings map[string]model.Booking
    venues   map[uint64]model.Venue
}

func newFakeStore() *fakeStore {
    return &fakeStore{
        slots:    make(map[string]model.Slot),
        bookings: make(map[string]model.Booking),
        venues:   make(map[uint64]model.Venue),
    }
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    f.txMu.Lock()
    defer f.txMu.Unlock()
    slotSnap, bookingSnap := f.snapshot()
    if err := fn(ctx); err != nil {
        f.restore(slotSnap, bookingSnap)
        return err
    }
    return nil
}

func (f *fakeStore) snapshot() (map[string]model.Slot, map[string]model.Booking) {
    f.mu.Lock()
    defer f.mu.Unlock()
    slots := make(map[string]model.Slot, len(f.slots))
    for k, v := range f.slots {
        slots[k] = v
    }
    bookings := make(map[string]model.Booking, len(f.bookings))
    for k, v := range f.bookings {
        bookings[k] = v
    }
    return slots, bookings
}

func (f *fakeStore) restore(slots map[string]model.Slot, bookings map[string]model.Booking) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.slots = slots
    f.bookings = bookings
}

// ----- SlotStore -----

func (f *fakeStore) Get(ctx context.Context, venueID uint64, date, startTime string) (model.Slot, error) {
    return f.GetByID(model.SlotID(venueID, date, startTime))
}

func (f *fakeStore) GetForUpdate(ctx context.Context, venueID uint64, date, startTime string) (model.Slot, error) {
    return f.GetByID(model.SlotID(venueID, date, startTime))
}

func (f *fakeStore) GetByIDForUpdate(ctx context.Context, id string) (model.Slot, error) {
    return f.GetByID(id)
}

func (f *fakeStore) GetByID(id string) (model.Slot, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    s, ok := f.slots[id]
    if !ok {
        return model.Slot{}, repository.ErrSlotNotFound
    }
    return s, nil
}

func (f *fakeStore) UpdateState(ctx context.Context, s model.Slot) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.slots[s.ID]; !ok {
        return repository.ErrSlotNotFound
    }
    f.slots[s.ID] = s
    return nil
}

func (f *fakeStore) CreateBulk(ctx context.Context, slots []model.Slot) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, s := range slots {
        if _, exists := f.slots[s.ID]; exists {
            continue // INSERT IGNORE semantics
        }
        f.slots[s.ID] = s
    }
    return nil
}

func (f *fakeStore) ListByVenueRange(ctx context.Context, venueID uint64, fromDate, toDate string) ([]model.Slot, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Slot
    for _, s := range f.slots {
        if s.VenueID == venueID && s.Date >= fromDate && s.Date <= toDate {
            out = append(out, s)
        }
    }
    sortSlots(out)
    return out, nil
}

func (f *fakeStore) ListOccupiedByVenue(ctx context.Context, venueID uint64) ([]model.Slot, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Slot
    for _, s := range f.slots {
        if s.VenueID == venueID && s.Status != model.SlotAvailable {
            out = append(out, s)
        }
    }
    sortSlots(out)
    return out, nil
}

func (f *fakeStore) DeleteAvailableInDates(ctx context.Context, venueID uint64, dates []string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    dateSet := make(map[string]bool, len(dates))
    for _, d := range dates {
        dateSet[d] = true
    }
    for id, s := range f.slots {
        if s.VenueID == venueID && s.Status == model.SlotAvailable && dateSet[s.Date] {
            delete(f.slots, id)
        }
    }
    return nil
}

func sortSlots(slots []model.Slot) {
    sort.Slice(slots, func(i, j int) bool {
        if slots[i].Date != slots[j].Date {
            return slots[i].Date < slots[j].Date
        }
        return slots[i].StartTime < slots[j].StartTime
    })
}

// ----- BookingStore -----

func (f *fakeStore) Create(ctx context.Context, b *model.Booking) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, exists := f.bookings[b.ID]; exists {
        return repository.ErrConflict
    }
    f.bookings[b.ID] = *b
    return nil
}

func (f *fakeStore) GetBookingByIDForUpdate(ctx context.Context, id string) (model.Booking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    b, ok := f.bookings[id]
    if !ok {
        return model.Booking{}, repository.ErrBookingNotFound
    }
    return b, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    b, ok := f.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.Status = status
    f.bookings[id] = b
    return nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    delete(f.bookings, id)
    return nil
}

// ----- VenueStore -----

func (f *fakeStore) GetVenueByID(ctx context.Context, id uint64) (model.Venue, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    v, ok := f.venues[id]
    if !ok {
        return model.Venue{}, repository.ErrVenueNotFound
    }
    return v, nil
}

// bookingStoreAdapter and venueStoreAdapter expose the fakeStore under the
// narrow contracts; both share the same state and mutex.
type bookingStoreAdapter struct{ *fakeStore }

func (a bookingStoreAdapter) GetByIDForUpdate(ctx context.Context, id string) (model.Booking, error) {
    return a.GetBookingByIDForUpdate(ctx, id)
}

type venueStoreAdapter struct{ *fakeStore }

func (a venueStoreAdapter) GetByID(ctx context.Context, id uint64) (model.Venue, error) {
    return a.GetVenueByID(ctx, id)
}

// fakeMirror keeps venue mirror documents in memory. Setting err makes
// every call fail, which is how tests prove mirror outages never surface
// to callers of the write paths.
type fakeMirror struct {
    mu   sync.Mutex
    docs map[uint64]model.VenueMirror
    err  error
}

func newFakeMirror() *fakeMirror {
    return &fakeMirror{docs: make(map[uint64]model.VenueMirror)}
}

func (m *fakeMirror) Get(ctx context.Context, venueID uint64) (model.VenueMirror, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.err != nil {
        return model.VenueMirror{}, m.err
    }
    doc, ok := m.docs[venueID]
    if !ok {
        return model.VenueMirror{VenueID: venueID}, nil
    }
    return doc, nil
}

func (m *fakeMirror) Put(ctx context.Context, doc model.VenueMirror) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.err != nil {
        return m.err
    }
    m.docs[doc.VenueID] = doc
    return nil
}

func (m *fakeMirror) mutate(venueID uint64, fn func(doc *model.VenueMirror)) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.err != nil {
        return m.err
    }
    doc, ok := m.docs[venueID]
    if !ok {
        doc = model.VenueMirror{VenueID: venueID}
    }
    fn(&doc)
    m.docs[venueID] = doc
    return nil
}

func (m *fakeMirror) UpsertHeld(ctx context.Context, venueID uint64, e model.HeldEntry) error {
    return m.mutate(venueID, func(doc *model.VenueMirror) { doc.UpsertHeld(e) })
}

func (m *fakeMirror) RemoveHeld(ctx context.Context, venueID uint64, date, startTime string) error {
    return m.mutate(venueID, func(doc *model.VenueMirror) { doc.RemoveHeld(date, startTime) })
}

func (m *fakeMirror) UpsertBooking(ctx context.Context, venueID uint64, e model.BookingEntry) error {
    return m.mutate(venueID, func(doc *model.VenueMirror) {
        doc.RemoveHeld(e.Date, e.StartTime)
        doc.UpsertBooking(e)
    })
}

func (m *fakeMirror) RemoveBooking(ctx context.Context, venueID uint64, date, startTime string) error {
    return m.mutate(venueID, func(doc *model.VenueMirror) { doc.RemoveBooking(date, startTime) })
}

func (m *fakeMirror) UpsertBlock(ctx context.Context, venueID uint64, e model.BlockEntry) error {
    return m.mutate(venueID, func(doc *model.VenueMirror) { doc.UpsertBlock(e) })
}

func (m *fakeMirror) RemoveBlock(ctx context.Context, venueID uint64, date, startTime string) error {
    return m.mutate(venueID, func(doc *model.VenueMirror) { doc.RemoveBlock(date, startTime) })
}

// fakePublisher records published confirmation events.
type fakePublisher struct {
    mu        sync.Mutex
    confirmed []model.Booking
}

func (p *fakePublisher) BookingConfirmed(ctx context.Context, b model.Booking) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.confirmed = append(p.confirmed, b)
    return nil
}

func testLogger() *logrus.Logger {
    l := logrus.New()
    l.SetOutput(io.Discard)
    return l
}

// fixture wires the three services over one shared fake store, a fake
// mirror and a fixed clock pinned to baseTime.
type fixture struct {
    store  *fakeStore
    mirror *fakeMirror
    events *fakePublisher
    clk    *clock.Fixed
    holds  *HoldService
    coord  *BookingService
    slots  *SlotService
}

var baseTime = time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC)

const (
    testVenueID   uint64 = 1
    testManagerID uint64 = 9
    testUserID    uint64 = 100
)

func newFixture(t *testing.T) *fixture {
    t.Helper()
    store := newFakeStore()
    store.venues[testVenueID] = model.Venue{
        ID:              testVenueID,
        ManagerID:       testManagerID,
        Name:            "Court One",
        OpenTime:        "08:00",
        CloseTime:       "22:00",
        SlotDurationMin: 60,
        HourlyRateCents: 6000,
    }
    mir := newFakeMirror()
    events := &fakePublisher{}
    clk := clock.NewFixed(baseTime)
    log := testLogger()

    bookings := bookingStoreAdapter{store}
    venues := venueStoreAdapter{store}
    return &fixture{
        store:  store,
        mirror: mir,
        events: events,
        clk:    clk,
        holds:  NewHoldService(store, store, bookings, venues, mir, clk, log),
        coord:  NewBookingService(store, store, bookings, venues, mir, events, clk, log),
        slots:  NewSlotService(store, store, venues, mir, clk, log),
    }
}

// addSlot seeds an AVAILABLE slot and returns it.
func (f *fixture) addSlot(date, start, end string) model.Slot {
    s := model.Slot{
        ID:        model.SlotID(testVenueID, date, start),
        VenueID:   testVenueID,
        Date:      date,
        StartTime: start,
        EndTime:   end,
        Status:    model.SlotAvailable,
    }
    f.store.mu.Lock()
    f.store.slots[s.ID] = s
    f.store.mu.Unlock()
    return s
}

// slot reads the current stored state of a seeded slot.
func (f *fixture) slot(date, start string) model.Slot {
    s, _ := f.store.GetByID(model.SlotID(testVenueID, date, start))
    return s
}

// booking reads a booking's current stored state.
func (f *fixture) booking(id string) (model.Booking, bool) {
    f.store.mu.Lock()
    defer f.store.mu.Unlock()
    b, ok := f.store.bookings[id]
    return b, ok
}
