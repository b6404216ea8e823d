package router

import (
	"github.com/labstack/echo/v4"

	"github.com/venuely/slot-booking/internal/handler"
	"github.com/venuely/slot-booking/internal/middleware"
)

// RegisterManager wires the venue-manager surface under /v1/manager.  Role
// membership is enforced here; per-venue ownership is enforced by the
// services before any business state is read.
func RegisterManager(e *echo.Echo, m *handler.ManagerHandler, jwtSecret string) {
	g := e.Group("/v1/manager")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("MANAGER", "ADMIN"))

	// Venue setup.
	g.POST("/venues", m.CreateVenue)
	g.GET("/venues", m.MyVenues)

	// Slot grid generation for the coming days.
	g.POST("/venues/:id/slots/generate", m.GenerateSlots)

	// Walk-in and phone reservations.
	g.POST("/venues/:id/reservations", m.Reserve)

	// Display-level blocks; live only in the mirror.
	g.POST("/venues/:id/blocks", m.Block)
	g.DELETE("/venues/:id/blocks", m.Unblock)

	// Remove a physical booking and free its slot.
	g.DELETE("/venues/:id/bookings/:bookingID", m.Unbook)
	// All bookings for a managed venue.
	g.GET("/venues/:id/bookings", m.VenueBookings)

	// Regenerate the availability mirror from slot store truth.
	g.POST("/venues/:id/mirror/rebuild", m.RebuildMirror)
}
