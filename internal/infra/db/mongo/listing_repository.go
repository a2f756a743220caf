package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlisting "staybook/internal/domain/listing"
	"staybook/internal/domain/shared/money"
)

const listingCollection = "agg_listing"

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingCollection)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlisting.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	doc := newListingDocument(l)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type listingDocument struct {
	ID           string    `bson:"_id"`
	HostID       string    `bson:"host_id"`
	Title        string    `bson:"title"`
	City         string    `bson:"city"`
	Country      string    `bson:"country"`
	RateAmount   int64     `bson:"rate_amount"`
	RateCurrency string    `bson:"rate_currency"`
	GuestsLimit  int       `bson:"guests_limit"`
	ThumbnailURL string    `bson:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newListingDocument(l *domainlisting.Listing) listingDocument {
	return listingDocument{
		ID:           string(l.ID),
		HostID:       string(l.Host),
		Title:        l.Title,
		City:         l.City,
		Country:      l.Country,
		RateAmount:   l.NightlyRate.Amount,
		RateCurrency: l.NightlyRate.Currency,
		GuestsLimit:  l.GuestsLimit,
		ThumbnailURL: l.ThumbnailURL,
		CreatedAt:    l.CreatedAt.UTC(),
		UpdatedAt:    l.UpdatedAt.UTC(),
	}
}

func (d listingDocument) toAggregate() *domainlisting.Listing {
	return &domainlisting.Listing{
		ID:           domainlisting.ListingID(d.ID),
		Host:         domainlisting.HostID(d.HostID),
		Title:        d.Title,
		City:         d.City,
		Country:      d.Country,
		NightlyRate:  money.Money{Amount: d.RateAmount, Currency: d.RateCurrency},
		GuestsLimit:  d.GuestsLimit,
		ThumbnailURL: d.ThumbnailURL,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

var _ domainlisting.Repository = (*ListingRepository)(nil)
