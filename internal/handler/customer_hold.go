package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/venuely/slot-booking/internal/model"
    "github.com/venuely/slot-booking/internal/repository"
    "github.com/venuely/slot-booking/internal/service"
)

// CustomerHandler exposes the authenticated customer surface: placing and
// releasing holds, and listing the caller's own bookings.
type CustomerHandler struct {
	Holds    *service.HoldService
	Bookings *repository.BookingRepo
}

func NewCustomerHandler(holds *service.HoldService, bookings *repository.BookingRepo) *CustomerHandler {
	return &CustomerHandler{Holds: holds, Bookings: bookings}
}

type placeHoldReq struct {
	Date        string `json:"date"`       // "2006-01-02"
	StartTime   string `json:"start_time"` // "15:04"
	DurationMin int    `json:"duration_min,omitempty"`
}

// PlaceHold claims a slot for the authenticated user. On success the
// response carries the booking ID the payment collaborator later
// confirms; the 409 and 404 outcomes are mapped by fail().
func (h *CustomerHandler) PlaceHold(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req placeHoldReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Date == "" || req.StartTime == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date/start_time required"})
	}

	bookingID, err := h.Holds.PlaceHold(c.Request().Context(), service.PlaceHoldInput{
		VenueID:     venueID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		HolderID:    uid,
		DurationMin: req.DurationMin,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking_id": bookingID})
}

// ReleaseHold frees the display-side hold entry. Idempotent: releasing a
// slot that is not held still returns 204.
func (h *CustomerHandler) ReleaseHold(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	date := c.QueryParam("date")
	start := c.QueryParam("start_time")
	if date == "" || start == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date/start_time required"})
	}
	if err := h.Holds.ReleaseHold(c.Request().Context(), venueID, date, start); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// bookingView is the wire shape of a booking for listing endpoints.
type bookingView struct {
	ID          string              `json:"id"`
	VenueID     uint64              `json:"venue_id"`
	Date        string              `json:"date"`
	StartTime   string              `json:"start_time"`
	EndTime     string              `json:"end_time"`
	AmountCents uint32              `json:"amount_cents"`
	Type        model.BookingType   `json:"type"`
	Status      model.BookingStatus `json:"status"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func toBookingViews(bs []model.Booking) []bookingView {
	out := make([]bookingView, 0, len(bs))
	for _, b := range bs {
		out = append(out, bookingView{
			ID:          b.ID,
			VenueID:     b.VenueID,
			Date:        b.Date,
			StartTime:   b.StartTime,
			EndTime:     b.EndTime,
			AmountCents: b.AmountCents,
			Type:        b.Type,
			Status:      b.Status,
			ExpiresAt:   b.ExpiresAt,
			CreatedAt:   b.CreatedAt,
		})
	}
	return out
}

// MyBookings lists the authenticated user's bookings, newest first.
func (h *CustomerHandler) MyBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bs, err := h.Bookings.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingViews(bs)})
}
