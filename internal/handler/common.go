package handler // handler defines http handlers

import (
    "errors"  // errors provides sentinel matching via errors.Is
    "net/http"
    "strconv" // strconv converts strings to numeric types

    "github.com/labstack/echo/v4"

    "github.com/venuely/slot-booking/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// JWT numeric claims arrive as float64; other producers may store native
// integer types or numeric strings, so all are accepted.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses the :id path parameter as an unsigned integer.
func pathID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(c.Param("id"), 10, 64)
}

// fail maps a service-layer error onto the JSON error response contract.
// Not-found sentinels become 404, conflicting state 409, lapsed holds 410,
// ownership violations 403, mirror outages 503; anything unrecognized is a
// plain 500 without leaking internals.
func fail(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrSlotNotFound),
        errors.Is(err, repository.ErrBookingNotFound),
        errors.Is(err, repository.ErrVenueNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrExpired):
        return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrUnavailable):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}
