package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	checkoutapp "staybook/internal/app/handlers/checkout"
	reservationapp "staybook/internal/app/handlers/reservation"
	"staybook/internal/app/policies"
	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
)

// statusFor maps domain and application errors onto HTTP statuses. Anything
// unmapped is a 500 and gets logged with its cause.
func statusFor(err error) int {
	switch {
	case errors.Is(err, daterange.ErrCheckOutNotAfterCheckIn),
		errors.Is(err, daterange.ErrZeroDate),
		errors.Is(err, domainreservation.ErrGuestRequired),
		errors.Is(err, domainreservation.ErrInvalidGuests),
		errors.Is(err, domainreservation.ErrStayTooLong),
		errors.Is(err, domainlisting.ErrTooManyGuests):
		return http.StatusBadRequest
	case errors.Is(err, reservationapp.ErrForbidden),
		errors.Is(err, checkoutapp.ErrNotHolder):
		return http.StatusForbidden
	case errors.Is(err, domainreservation.ErrNotFound),
		errors.Is(err, domainlisting.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainreservation.ErrDatesUnavailable),
		errors.Is(err, domainreservation.ErrInvalidTransition),
		errors.Is(err, domainreservation.ErrHoldExpired),
		errors.Is(err, domainreservation.ErrHoldNotDue):
		return http.StatusConflict
	case errors.Is(err, policies.ErrPaymentSession):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
