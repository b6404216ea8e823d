package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestBookingStatusCanTransition(t *testing.T) {
    cases := []struct {
        name string
        from BookingStatus
        to   BookingStatus
        want bool
    }{
        {"pending to confirmed", BookingPendingPayment, BookingConfirmed, true},
        {"pending to cancelled", BookingPendingPayment, BookingCancelled, true},
        {"pending to completed", BookingPendingPayment, BookingCompleted, false},
        {"confirmed to completed", BookingConfirmed, BookingCompleted, true},
        {"confirmed to cancelled", BookingConfirmed, BookingCancelled, true},
        {"confirmed back to pending", BookingConfirmed, BookingPendingPayment, false},
        {"completed is terminal", BookingCompleted, BookingCancelled, false},
        {"cancelled is terminal", BookingCancelled, BookingConfirmed, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            assert.Equal(t, tc.want, tc.from.CanTransition(tc.to))
        })
    }
}

func TestBookingExpired(t *testing.T) {
    now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
    past := now.Add(-time.Minute)
    future := now.Add(time.Minute)

    assert.True(t, Booking{Status: BookingPendingPayment, ExpiresAt: &past}.Expired(now))
    assert.False(t, Booking{Status: BookingPendingPayment, ExpiresAt: &future}.Expired(now))
    assert.True(t, Booking{Status: BookingPendingPayment}.Expired(now), "pending without expiry is void")
    assert.False(t, Booking{Status: BookingConfirmed, ExpiresAt: &past}.Expired(now), "confirmed never expires")
    assert.False(t, Booking{Status: BookingCancelled, ExpiresAt: &past}.Expired(now))
}
