package dto

import (
	"time"

	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type ListingSnapshot struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	City         string `json:"city"`
	Country      string `json:"country"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type ReservationSummary struct {
	ID              string          `json:"id"`
	Listing         ListingSnapshot `json:"listing"`
	GuestID         string          `json:"guest_id"`
	CheckIn         time.Time       `json:"check_in"`
	CheckOut        time.Time       `json:"check_out"`
	Nights          int             `json:"nights"`
	Guests          int             `json:"guests"`
	Status          string          `json:"status"`
	Total           MoneyDTO        `json:"total"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	ConfirmationRef string          `json:"confirmation_ref,omitempty"`
}

type ReservationCollection struct {
	Items []ReservationSummary `json:"items"`
}

// BookedRange is a calendar-feed entry: dates only, no holder details.
type BookedRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type BookedDates struct {
	Items []BookedRange `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func MapReservationSummary(r *domainreservation.Reservation, l *domainlisting.Listing) ReservationSummary {
	snapshot := ListingSnapshot{ID: string(r.ListingID)}
	if l != nil {
		snapshot.Title = l.Title
		snapshot.City = l.City
		snapshot.Country = l.Country
		snapshot.ThumbnailURL = l.ThumbnailURL
	}
	return ReservationSummary{
		ID:              string(r.ID),
		Listing:         snapshot,
		GuestID:         r.GuestID,
		CheckIn:         r.Range.CheckIn,
		CheckOut:        r.Range.CheckOut,
		Nights:          r.Range.Nights(),
		Guests:          r.Guests,
		Status:          string(r.Status),
		Total:           MapMoney(r.TotalPrice),
		CreatedAt:       r.CreatedAt,
		ExpiresAt:       r.ExpiresAt,
		ConfirmationRef: r.PaymentConfirmationRef,
	}
}

const bookedRangeLayout = "2006-01-02"

func MapBookedRange(dr daterange.DateRange) BookedRange {
	return BookedRange{
		From: dr.CheckIn.Format(bookedRangeLayout),
		To:   dr.CheckOut.Format(bookedRangeLayout),
	}
}
