package router

import (
	"github.com/labstack/echo/v4"

	"github.com/venuely/slot-booking/internal/handler"
	"github.com/venuely/slot-booking/internal/middleware"
)

// RegisterCustomer wires the customer surface.  Any signed-in role may
// place holds; the hold endpoint additionally passes through the
// token-bucket rate limiter because holds are the contended resource.
// Releasing a hold takes no token: it only frees display capacity, never
// grants any, and is idempotent.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	// Release a hold's display entry; idempotent, unauthenticated.
	e.DELETE("/v1/venues/:id/holds", h.ReleaseHold)

	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("USER", "MANAGER", "ADMIN"))

	// Claim a slot; the response carries the pending booking ID.
	g.POST("/venues/:id/holds", h.PlaceHold, rateLimit)
	// The caller's own bookings, newest first.
	g.GET("/me/bookings", h.MyBookings)
}
