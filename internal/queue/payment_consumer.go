package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/venuely/slot-booking/internal/repository"
    "github.com/venuely/slot-booking/internal/service"
)

// StartPaymentConsumer connects to RabbitMQ, declares the payment queues
// (durable), and dispatches each event to the booking coordinator:
// payment.succeeded drives ConfirmPayment, payment.failed drives
// FailPayment. The function runs a reconnect loop with exponential
// backoff and never returns under normal operation; processing errors are
// logged and the message rejected without requeue so a poison event
// cannot wedge the queue.
func StartPaymentConsumer(bookings *service.BookingService, log logrus.FieldLogger) error {
    url := brokerURL()
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.WithError(err).Warnf("payment-consumer: dial failed; retrying in %s", backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn, bookings, log); err != nil {
            log.WithError(err).Warn("payment-consumer: consume loop ended; reconnecting")
            time.Sleep(2 * time.Second)
        }
    }
}

func consumeLoop(conn *amqp.Connection, bookings *service.BookingService, log logrus.FieldLogger) error {
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.WithError(err).Warn("payment-consumer: set QoS failed")
    }

    for _, q := range []string{PaymentSucceededQueue, PaymentFailedQueue} {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
    }

    succeeded, err := ch.Consume(PaymentSucceededQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("consume %s: %w", PaymentSucceededQueue, err)
    }
    failed, err := ch.Consume(PaymentFailedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("consume %s: %w", PaymentFailedQueue, err)
    }

    for {
        select {
        case d, ok := <-succeeded:
            if !ok {
                return errors.New("succeeded deliveries channel closed")
            }
            handle(d, bookings, true, log)
        case d, ok := <-failed:
            if !ok {
                return errors.New("failed deliveries channel closed")
            }
            handle(d, bookings, false, log)
        }
    }
}

func handle(d amqp.Delivery, bookings *service.BookingService, succeeded bool, log logrus.FieldLogger) {
    var ev PaymentEvent
    if err := json.Unmarshal(d.Body, &ev); err != nil {
        log.WithError(err).Warn("payment-consumer: unmarshal failed")
        _ = d.Nack(false, false)
        return
    }
    if ev.BookingID == "" {
        log.Warn("payment-consumer: event without booking_id")
        _ = d.Nack(false, false)
        return
    }

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()

    var err error
    if succeeded {
        var res service.ConfirmResult
        res, err = bookings.ConfirmPayment(ctx, ev.BookingID)
        if err == nil && res.AlreadyConfirmed {
            log.WithField("booking_id", ev.BookingID).Info("payment-consumer: booking already confirmed")
        }
    } else {
        err = bookings.FailPayment(ctx, ev.BookingID)
    }

    switch {
    case err == nil:
        _ = d.Ack(false)
    case errors.Is(err, repository.ErrExpired),
        errors.Is(err, repository.ErrConflict),
        errors.Is(err, repository.ErrBookingNotFound):
        // Terminal business outcomes: the event is consumed, the outcome
        // just isn't a confirmation. Redelivery would not change it.
        log.WithError(err).WithField("booking_id", ev.BookingID).Info("payment-consumer: event not applicable")
        _ = d.Ack(false)
    default:
        log.WithError(err).WithField("booking_id", ev.BookingID).Warn("payment-consumer: processing failed")
        _ = d.Nack(false, true) // transient: requeue
    }
}
