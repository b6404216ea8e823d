package model

import "time"

// Venue represents a physical location with bookable time slots, owned by
// a manager account. Pricing lives here: the amount of every booking is
// derived from HourlyRateCents at hold creation, never from the caller.
// This struct corresponds to a row in the `venues` table.
//
// Fields:
//  ID              – primary key identifier.
//  ManagerID       – user ID of the managing account.
//  Name            – venue name, unique per manager.
//  OpenTime        – daily opening time in "15:04" format.
//  CloseTime       – daily closing time in "15:04" format.
//  SlotDurationMin – default slot length used by generation.
//  HourlyRateCents – price per hour in cents.
//  CreatedAt       – timestamp when the venue was created.
//  UpdatedAt       – timestamp of last update.
type Venue struct {
    ID              uint64    // venues.id
    ManagerID       uint64    // venues.manager_id
    Name            string    // venues.name
    OpenTime        string    // venues.open_time
    CloseTime       string    // venues.close_time
    SlotDurationMin int       // venues.slot_duration_min
    HourlyRateCents uint32    // venues.hourly_rate_cents
    CreatedAt       time.Time // venues.created_at
    UpdatedAt       time.Time // venues.updated_at
}

// SlotPriceCents computes the server-side price for a slot of the given
// duration, pro-rated from the venue's hourly rate.
func (v Venue) SlotPriceCents(durationMin int) uint32 {
    if durationMin <= 0 {
        return 0
    }
    return uint32(uint64(v.HourlyRateCents) * uint64(durationMin) / 60)
}
