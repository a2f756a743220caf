package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/shared/money"
)

var (
	ErrListingNotFound = errors.New("listing: not found")
	ErrTitleRequired   = errors.New("listing: title required")
	ErrHostRequired    = errors.New("listing: host required")
	ErrInvalidRate     = errors.New("listing: nightly rate must be positive")
	ErrTooManyGuests   = errors.New("listing: guest count exceeds the listing's limit")
)

type ListingID string

type HostID string

// Listing is the resource-catalog view the booking core needs: pricing, a guest
// limit and the display fields the payment session line item shows. Listing
// management itself lives outside this service.
type Listing struct {
	ID           ListingID
	Host         HostID
	Title        string
	City         string
	Country      string
	NightlyRate  money.Money
	GuestsLimit  int
	ThumbnailURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateParams struct {
	ID           ListingID
	Host         HostID
	Title        string
	City         string
	Country      string
	NightlyRate  money.Money
	GuestsLimit  int
	ThumbnailURL string
	Now          time.Time
}

func New(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.NightlyRate.Amount <= 0 || params.NightlyRate.Currency == "" {
		return nil, ErrInvalidRate
	}
	now := params.Now.UTC()
	return &Listing{
		ID:           params.ID,
		Host:         params.Host,
		Title:        params.Title,
		City:         params.City,
		Country:      params.Country,
		NightlyRate:  params.NightlyRate,
		GuestsLimit:  params.GuestsLimit,
		ThumbnailURL: params.ThumbnailURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Accommodates reports whether the listing can host the given party size.
// A zero limit means the listing declares no limit of its own.
func (l *Listing) Accommodates(guests int) bool {
	return l.GuestsLimit == 0 || guests <= l.GuestsLimit
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}
