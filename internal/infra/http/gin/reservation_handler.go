package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	reservationapp "staybook/internal/app/handlers/reservation"
	"staybook/internal/app/queries"
)

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h ReservationHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := reservationapp.GetReservationQuery{
		ReservationID: c.Param("id"),
		Actor:         actorFrom(user),
	}
	result, err := queries.Ask[reservationapp.GetReservationQuery, *dto.ReservationSummary](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Confirm(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := reservationapp.ConfirmReservationCommand{
		ReservationID: c.Param("id"),
		Actor:         actorFrom(user),
	}
	result, err := commands.Dispatch[reservationapp.ConfirmReservationCommand, *reservationapp.ConfirmReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelReservationRequest struct {
	Reason string `json:"reason"`
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req cancelReservationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	cmd := reservationapp.CancelReservationCommand{
		ReservationID: c.Param("id"),
		Actor:         actorFrom(user),
		Reason:        req.Reason,
	}
	result, err := commands.Dispatch[reservationapp.CancelReservationCommand, *reservationapp.CancelReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) ListMine(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := reservationapp.ListGuestReservationsQuery{GuestID: user.ID}
	result, err := queries.Ask[reservationapp.ListGuestReservationsQuery, *dto.ReservationCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BookedDates is public: it exposes date ranges only.
func (h ReservationHandler) BookedDates(c *gin.Context) {
	query := reservationapp.GetBookedDatesQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[reservationapp.GetBookedDatesQuery, *dto.BookedDates](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func actorFrom(p principal) reservationapp.Actor {
	return reservationapp.Actor{ID: p.ID, Roles: p.Roles}
}

var _ ReservationHTTP = ReservationHandler{}
