package client

import (
	"context"
	"time"

	common_models "go-sitter/internal/common/models"
	"go-sitter/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Rating struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID  string             `bson:"client_id" json:"client_id"`
	BookingID string             `bson:"booking_id" json:"booking_id"`
	Stars     int                `bson:"stars" json:"stars"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type RatingRepository interface {
	Create(ctx context.Context, rating *Rating) error
	AverageForClient(ctx context.Context, clientID string) (float64, error)
}

type RatingRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRatingRepository(mongodb *database.MongodbDB) RatingRepository {
	return &RatingRepositoryImpl{
		Collection: mongodb.DB.Collection("ratings"),
	}
}

func (r *RatingRepositoryImpl) Create(ctx context.Context, rating *Rating) error {
	if rating.Stars < 1 || rating.Stars > 5 {
		return &common_models.ValidationError{Field: "stars", Reason: "must be between 1 and 5"}
	}
	rating.ID = primitive.NewObjectID()
	rating.CreatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, rating)
	return err
}

func (r *RatingRepositoryImpl) AverageForClient(ctx context.Context, clientID string) (float64, error) {
	cursor, err := r.Collection.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"client_id": clientID}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": nil, "avg": bson.M{"$avg": "$stars"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Avg float64 `bson:"avg"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Avg, nil
}
