package reservation

import (
	"time"

	"staybook/internal/domain/listing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type ReservationRequested struct {
	ReservationID ReservationID
	ListingID     listing.ListingID
	GuestID       string
	Range         daterange.DateRange
	Guests        int
	Total         money.Money
	ExpiresAt     time.Time
	At            time.Time
}

func (e ReservationRequested) EventName() string     { return "reservation.requested" }
func (e ReservationRequested) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationRequested) OccurredAt() time.Time { return e.At }

type ReservationConfirmed struct {
	ReservationID   ReservationID
	ListingID       listing.ListingID
	Range           daterange.DateRange
	Total           money.Money
	ConfirmationRef string
	At              time.Time
}

func (e ReservationConfirmed) EventName() string     { return "reservation.confirmed" }
func (e ReservationConfirmed) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationConfirmed) OccurredAt() time.Time { return e.At }

type ReservationCancelled struct {
	ReservationID ReservationID
	ListingID     listing.ListingID
	WasConfirmed  bool
	Reason        string
	At            time.Time
}

func (e ReservationCancelled) EventName() string     { return "reservation.cancelled" }
func (e ReservationCancelled) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCancelled) OccurredAt() time.Time { return e.At }

type ReservationExpired struct {
	ReservationID ReservationID
	ListingID     listing.ListingID
	At            time.Time
}

func (e ReservationExpired) EventName() string     { return "reservation.expired" }
func (e ReservationExpired) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationExpired) OccurredAt() time.Time { return e.At }
