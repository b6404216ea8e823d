// Package queue defines message payloads exchanged over the broker and
// the consumers/publishers that move them.
package queue

// Queue names on the default exchange. The payment gateway integration
// publishes to the payment queues; this service consumes them and, in the
// other direction, publishes booking confirmations.
const (
    PaymentSucceededQueue = "payment.succeeded"
    PaymentFailedQueue    = "payment.failed"
    BookingConfirmedQueue = "booking.confirmed"
)

// PaymentEvent is emitted by the payment collaborator when a gateway
// reports the outcome of a charge. Only the booking reference is trusted;
// the amount was fixed server-side at hold creation and is not carried
// here.
type PaymentEvent struct {
    BookingID     string `json:"booking_id"`
    PaymentMethod string `json:"payment_method,omitempty"`
    OccurredAt    string `json:"occurred_at,omitempty"`
}

// BookingConfirmedEvent is published when a booking is successfully
// confirmed. It carries enough for downstream consumers to log or notify
// without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID   string `json:"booking_id"`
    VenueID     uint64 `json:"venue_id"`
    Date        string `json:"date"`
    StartTime   string `json:"start_time"`
    EndTime     string `json:"end_time"`
    AmountCents uint32 `json:"amount_cents"`
    ConfirmedAt string `json:"confirmed_at"`
}
