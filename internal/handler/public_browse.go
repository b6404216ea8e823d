package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/venuely/slot-booking/internal/service"
)

// PublicHandler serves the unauthenticated read side: slot listings with
// effective statuses and the mirror-backed availability snapshot.
type PublicHandler struct {
	Slots *service.SlotService
}

func NewPublicHandler(slots *service.SlotService) *PublicHandler {
	return &PublicHandler{Slots: slots}
}

// GetVenueSlots lists a venue's slots between ?from and ?to (inclusive,
// "2006-01-02"). Statuses are effective: a lapsed hold is reported
// AVAILABLE even before anything reclaims it.
func (h *PublicHandler) GetVenueSlots(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if from == "" || to == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from/to required"})
	}

	views, err := h.Slots.ListSlots(c.Request().Context(), venueID, from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venueID, "slots": views})
}

// GetVenueAvailability serves the fast availability snapshot from the
// venue mirror. The snapshot is eventually consistent; held entries are
// self-healed against the slot store before leaving.
func (h *PublicHandler) GetVenueAvailability(c echo.Context) error {
	venueID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	av, err := h.Slots.VenueAvailability(c.Request().Context(), venueID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, av)
}
