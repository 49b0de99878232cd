package booking

import (
	"context"
	"time"

	"go-sitter/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Query is the filter shape supported by the booking store: by client, by
// sitter, by status set and by date range.
type Query struct {
	ClientID    string
	SitterID    string
	ServiceType string
	Statuses    []Status
	From        time.Time // zero = unbounded
	To          time.Time // zero = unbounded
}

type Repository interface {
	Get(ctx context.Context, id string) (*Booking, error)
	Create(ctx context.Context, bk *Booking) error
	Update(ctx context.Context, id string, changes map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, q Query) ([]Booking, error)
	Count(ctx context.Context, q Query) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type RepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRepository(mongodb *database.MongodbDB) Repository {
	return &RepositoryImpl{
		Collection: mongodb.DB.Collection("bookings"),
	}
}

func (r *RepositoryImpl) Get(ctx context.Context, id string) (*Booking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var bk Booking
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&bk)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &bk, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, bk *Booking) error {
	if bk.ID.IsZero() {
		bk.ID = primitive.NewObjectID()
	}
	now := time.Now()
	bk.CreatedAt = now
	bk.LastModified = now
	_, err := r.Collection.InsertOne(ctx, bk)
	return err
}

func (r *RepositoryImpl) Update(ctx context.Context, id string, changes map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	set := bson.M{"last_modified": time.Now()}
	for k, v := range changes {
		set[k] = v
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	return err
}

func (r *RepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *RepositoryImpl) Query(ctx context.Context, q Query) ([]Booking, error) {
	cursor, err := r.Collection.Find(ctx, buildFilter(q), options.Find().SetSort(bson.D{{Key: "scheduled_start", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var bookings []Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *RepositoryImpl) Count(ctx context.Context, q Query) (int64, error) {
	return r.Collection.CountDocuments(ctx, buildFilter(q))
}

func (r *RepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sitter_id", Value: 1}, {Key: "scheduled_start", Value: 1}}},
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

func buildFilter(q Query) bson.M {
	filter := bson.M{}
	if q.ClientID != "" {
		filter["client_id"] = q.ClientID
	}
	if q.SitterID != "" {
		filter["sitter_id"] = q.SitterID
	}
	if q.ServiceType != "" {
		filter["service_type"] = q.ServiceType
	}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}
	dateRange := bson.M{}
	if !q.From.IsZero() {
		dateRange["$gte"] = q.From
	}
	if !q.To.IsZero() {
		dateRange["$lt"] = q.To
	}
	if len(dateRange) > 0 {
		filter["scheduled_start"] = dateRange
	}
	return filter
}
