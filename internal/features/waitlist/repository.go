package waitlist

import (
	"context"
	"time"

	"go-sitter/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Slot identifies a waitlist demand bucket.
type Slot struct {
	ServiceType string `bson:"service_type" json:"service_type"`
	Date        string `bson:"date" json:"date"`
	StartTime   string `bson:"start_time" json:"start_time"`
}

type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id string) (*Entry, error)
	FindWaitingBySlot(ctx context.Context, serviceType, date, startTime string) ([]Entry, error)
	FindDuplicate(ctx context.Context, clientID, serviceType, date, startTime string) (*Entry, error)
	ClaimForPromotion(ctx context.Context, id string, promotedAt time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	DistinctWaitingSlots(ctx context.Context) ([]Slot, error)
}

type RepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRepository(mongodb *database.MongodbDB) Repository {
	return &RepositoryImpl{
		Collection: mongodb.DB.Collection("waitlist"),
	}
}

func (r *RepositoryImpl) Create(ctx context.Context, entry *Entry) error {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, entry)
	return err
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id string) (*Entry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var entry Entry
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *RepositoryImpl) FindWaitingBySlot(ctx context.Context, serviceType, date, startTime string) ([]Entry, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"service_type": serviceType,
		"date":         date,
		"start_time":   startTime,
		"status":       StatusWaiting,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var entries []Entry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *RepositoryImpl) FindDuplicate(ctx context.Context, clientID, serviceType, date, startTime string) (*Entry, error) {
	var entry Entry
	err := r.Collection.FindOne(ctx, bson.M{
		"client_id":    clientID,
		"service_type": serviceType,
		"date":         date,
		"start_time":   startTime,
		"status":       StatusWaiting,
	}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ClaimForPromotion flips waiting -> promoted atomically. Under two
// concurrent promotions for the same slot only one caller wins the claim;
// the other sees false and moves on to the next candidate.
func (r *RepositoryImpl) ClaimForPromotion(ctx context.Context, id string, promotedAt time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}
	result := r.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": StatusWaiting},
		bson.M{"$set": bson.M{"status": StatusPromoted, "promoted_at": promotedAt}},
	)
	if result.Err() != nil {
		if result.Err() == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, result.Err()
	}
	return true, nil
}

func (r *RepositoryImpl) UpdateStatus(ctx context.Context, id string, status Status) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"status": status}})
	return err
}

func (r *RepositoryImpl) DistinctWaitingSlots(ctx context.Context) ([]Slot, error) {
	cursor, err := r.Collection.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"status": StatusWaiting}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": bson.M{
			"service_type": "$service_type",
			"date":         "$date",
			"start_time":   "$start_time",
		}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []struct {
		ID Slot `bson:"_id"`
	}
	if err = cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	slots := make([]Slot, 0, len(groups))
	for _, g := range groups {
		slots = append(slots, g.ID)
	}
	return slots, nil
}
