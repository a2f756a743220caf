package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlisting "staybook/internal/domain/listing"
	domainreservation "staybook/internal/domain/reservation"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

const reservationCollection = "agg_reservation"

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection(reservationCollection)}
}

// EnsureIndexes creates the query and housekeeping indexes. The TTL index
// physically removes settled records 30 days after their hold deadline passed;
// logical expiry is the sweeper's job, not Mongo's.
func (r *ReservationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "session_ref", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(30 * 24 * 60 * 60),
		},
	})
	return err
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) BySessionRef(ctx context.Context, sessionRef string) (*domainreservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"session_ref": sessionRef}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) BlockingByListing(ctx context.Context, id domainlisting.ListingID) ([]*domainreservation.Reservation, error) {
	filter := bson.M{
		"listing_id": string(id),
		"status": bson.M{"$nin": bson.A{
			string(domainreservation.StatusCancelled),
			string(domainreservation.StatusExpired),
		}},
	}
	return r.find(ctx, filter, nil)
}

func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainreservation.Reservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"guest_id": guestID}, opts)
}

func (r *ReservationRepository) DuePending(ctx context.Context, now time.Time) ([]*domainreservation.Reservation, error) {
	filter := bson.M{
		"status":     string(domainreservation.StatusPendingPayment),
		"expires_at": bson.M{"$lt": now.UTC()},
	}
	return r.find(ctx, filter, nil)
}

func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	doc := newReservationDocument(res)
	filter := bson.M{"_id": doc.ID, "version": res.Version}
	doc.Version = res.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	result, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	res.Version = doc.Version
	return nil
}

func (r *ReservationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainreservation.Reservation, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = r.col.Find(ctx, filter, opts)
	} else {
		cursor, err = r.col.Find(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []*domainreservation.Reservation
	for cursor.Next(ctx) {
		var doc reservationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, doc.toAggregate())
	}
	return result, cursor.Err()
}

type reservationDocument struct {
	ID              string        `bson:"_id"`
	ListingID       string        `bson:"listing_id"`
	GuestID         string        `bson:"guest_id"`
	Range           rangeDocument `bson:"range"`
	Guests          int           `bson:"guests"`
	TotalAmount     int64         `bson:"total_amount"`
	TotalCurrency   string        `bson:"total_currency"`
	Status          string        `bson:"status"`
	SessionRef      string        `bson:"session_ref,omitempty"`
	ConfirmationRef string        `bson:"confirmation_ref,omitempty"`
	CreatedAt       time.Time     `bson:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at"`
	// No omitempty: a settled reservation must overwrite the stored deadline
	// with null, and the TTL index skips nulls.
	ExpiresAt *time.Time `bson:"expires_at"`
	Version         int64         `bson:"version"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newReservationDocument(res *domainreservation.Reservation) reservationDocument {
	doc := reservationDocument{
		ID:              string(res.ID),
		ListingID:       string(res.ListingID),
		GuestID:         res.GuestID,
		Range:           rangeDocument{CheckIn: res.Range.CheckIn.UnixMilli(), CheckOut: res.Range.CheckOut.UnixMilli()},
		Guests:          res.Guests,
		TotalAmount:     res.TotalPrice.Amount,
		TotalCurrency:   res.TotalPrice.Currency,
		Status:          string(res.Status),
		SessionRef:      res.PaymentSessionRef,
		ConfirmationRef: res.PaymentConfirmationRef,
		CreatedAt:       res.CreatedAt.UTC(),
		UpdatedAt:       res.UpdatedAt.UTC(),
		Version:         res.Version,
	}
	if res.ExpiresAt != nil {
		expires := res.ExpiresAt.UTC()
		doc.ExpiresAt = &expires
	}
	return doc
}

func (d reservationDocument) toAggregate() *domainreservation.Reservation {
	dr := domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)}
	agg := &domainreservation.Reservation{
		ID:                     domainreservation.ReservationID(d.ID),
		ListingID:              domainlisting.ListingID(d.ListingID),
		GuestID:                d.GuestID,
		Range:                  dr,
		Guests:                 d.Guests,
		TotalPrice:             money.Money{Amount: d.TotalAmount, Currency: d.TotalCurrency},
		Status:                 domainreservation.Status(d.Status),
		PaymentSessionRef:      d.SessionRef,
		PaymentConfirmationRef: d.ConfirmationRef,
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt.UTC(),
		Version:                d.Version,
	}
	if d.ExpiresAt != nil {
		expires := d.ExpiresAt.UTC()
		agg.ExpiresAt = &expires
	}
	return agg
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainreservation.Repository = (*ReservationRepository)(nil)
