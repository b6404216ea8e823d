package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/venuely/slot-booking/internal/model"
    "github.com/venuely/slot-booking/internal/repository"
    "github.com/venuely/slot-booking/internal/service"
)

// ManagerHandler exposes the venue-manager surface: venue setup, slot
// generation, walk-in reservations, blocks and mirror maintenance. Role
// membership is enforced by middleware; per-venue ownership is enforced
// inside the services.
type ManagerHandler struct {
	Venues   *repository.VenueRepo
	Bookings *repository.BookingRepo
	Slots    *service.SlotService
	Coord    *service.BookingService
}

func NewManagerHandler(venues *repository.VenueRepo, bookings *repository.BookingRepo, slots *service.SlotService, coord *service.BookingService) *ManagerHandler {
	return &ManagerHandler{Venues: venues, Bookings: bookings, Slots: slots, Coord: coord}
}

type createVenueReq struct {
	Name            string `json:"name"`
	OpenTime        string `json:"open_time"`  // "15:04"
	CloseTime       string `json:"close_time"` // "15:04"
	SlotDurationMin int    `json:"slot_duration_min"`
	HourlyRateCents uint32 `json:"hourly_rate_cents"`
}

// CreateVenue registers a venue owned by the authenticated manager.
func (h *ManagerHandler) CreateVenue(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createVenueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" || req.OpenTime == "" || req.CloseTime == "" || req.HourlyRateCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/open_time/close_time/hourly_rate_cents required"})
	}
	if req.SlotDurationMin <= 0 {
		req.SlotDurationMin = service.DefaultSlotDurationMin
	}

	v := model.Venue{
		ManagerID:       uid,
		Name:            req.Name,
		OpenTime:        req.OpenTime,
		CloseTime:       req.CloseTime,
		SlotDurationMin: req.SlotDurationMin,
		HourlyRateCents: req.HourlyRateCents,
	}
	if err := h.Venues.Create(c.Request().Context(), &v); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"venue_id": v.ID})
}

// venueView is the wire shape of a venue.
type venueView struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	OpenTime        string `json:"open_time"`
	CloseTime       string `json:"close_time"`
	SlotDurationMin int    `json:"slot_duration_min"`
	HourlyRateCents uint32 `json:"hourly_rate_cents"`
}

// MyVenues lists the venues the authenticated manager owns.
func (h *ManagerHandler) MyVenues(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	vs, err := h.Venues.ListByManager(c.Request().Context(), uid)
	if err != nil {
		return fail(c, err)
	}
	out := make([]venueView, 0, len(vs))
	for _, v := range vs {
		out = append(out, venueView{
			ID:              v.ID,
			Name:            v.Name,
			OpenTime:        v.OpenTime,
			CloseTime:       v.CloseTime,
			SlotDurationMin: v.SlotDurationMin,
			HourlyRateCents: v.HourlyRateCents,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"venues": out})
}

type generateSlotsReq struct {
	StartTime   string `json:"start_time"` // "15:04"
	EndTime     string `json:"end_time"`   // "15:04"
	DurationMin int    `json:"duration_min,omitempty"`
	Days        int    `json:"days,omitempty"`
}

// GenerateSlots creates the venue's slot grid for the coming days.
// Repeating the call is idempotent; changing the grid over occupied
// slots is a 409.
func (h *ManagerHandler) GenerateSlots(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req generateSlotsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.StartTime == "" || req.EndTime == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time/end_time required"})
	}

	n, err := h.Slots.GenerateSlots(c.Request().Context(), service.GenerateInput{
		ManagerID:   uid,
		VenueID:     venueID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		DurationMin: req.DurationMin,
		Days:        req.Days,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"slots": n})
}

type reserveReq struct {
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// Reserve records a walk-in or phone booking. The slot moves straight to
// RESERVED and the booking is confirmed without payment.
func (h *ManagerHandler) Reserve(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Date == "" || req.StartTime == "" || req.CustomerName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date/start_time/customer_name required"})
	}

	bookingID, err := h.Coord.ReserveSlot(c.Request().Context(), service.ReserveInput{
		ManagerID:     uid,
		VenueID:       venueID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking_id": bookingID})
}

type blockReq struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Reason    string `json:"reason,omitempty"`
}

// Block marks a slot unavailable on the availability display. Blocks live
// only in the mirror; a slot already carrying a booking is a 409.
func (h *ManagerHandler) Block(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req blockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Date == "" || req.StartTime == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date/start_time required"})
	}

	if err := h.Coord.BlockSlot(c.Request().Context(), service.BlockInput{
		ManagerID: uid,
		VenueID:   venueID,
		Date:      req.Date,
		StartTime: req.StartTime,
		Reason:    req.Reason,
	}); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Unblock removes a block entry. Idempotent.
func (h *ManagerHandler) Unblock(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	date := c.QueryParam("date")
	start := c.QueryParam("start_time")
	if date == "" || start == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date/start_time required"})
	}
	if err := h.Coord.UnblockSlot(c.Request().Context(), uid, venueID, date, start); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Unbook removes a physical booking and frees its slot. Online bookings
// cannot be removed this way and return 409.
func (h *ManagerHandler) Unbook(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := c.Param("bookingID")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking id required"})
	}
	if err := h.Coord.UnbookSlot(c.Request().Context(), uid, venueID, bookingID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// VenueBookings lists all bookings for a venue the caller manages.
func (h *ManagerHandler) VenueBookings(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	v, err := h.Venues.GetByID(c.Request().Context(), venueID)
	if err != nil {
		return fail(c, err)
	}
	if v.ManagerID != uid {
		return fail(c, repository.ErrForbidden)
	}
	bs, err := h.Bookings.ListByVenue(c.Request().Context(), venueID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingViews(bs)})
}

// RebuildMirror regenerates the venue's availability mirror from slot
// store truth. Recovery endpoint for mirror drift.
func (h *ManagerHandler) RebuildMirror(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	v, err := h.Venues.GetByID(c.Request().Context(), venueID)
	if err != nil {
		return fail(c, err)
	}
	if v.ManagerID != uid {
		return fail(c, repository.ErrForbidden)
	}
	if err := h.Slots.RebuildMirror(c.Request().Context(), venueID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
