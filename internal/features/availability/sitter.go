package availability

import (
	"context"
	"time"

	"go-sitter/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Sitter struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Active   bool               `bson:"active" json:"active"`
	Services []string           `bson:"services" json:"services"`
}

// Provider lists candidate sitters for a datetime. Selection policy among
// candidates is left to the caller (assignment actions take the first
// candidate whose calendar is free).
type Provider interface {
	Available(ctx context.Context, at time.Time, serviceType string) ([]string, error)
}

type SitterRepository interface {
	Provider
	Create(ctx context.Context, s *Sitter) error
	List(ctx context.Context) ([]Sitter, error)
}

type SitterRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewSitterRepository(mongodb *database.MongodbDB) SitterRepository {
	return &SitterRepositoryImpl{
		Collection: mongodb.DB.Collection("sitters"),
	}
}

func (r *SitterRepositoryImpl) Create(ctx context.Context, s *Sitter) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, s)
	return err
}

func (r *SitterRepositoryImpl) List(ctx context.Context) ([]Sitter, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var sitters []Sitter
	if err = cursor.All(ctx, &sitters); err != nil {
		return nil, err
	}
	return sitters, nil
}

func (r *SitterRepositoryImpl) Available(ctx context.Context, at time.Time, serviceType string) ([]string, error) {
	filter := bson.M{"active": true}
	if serviceType != "" {
		filter["services"] = serviceType
	}
	cursor, err := r.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sitters []Sitter
	if err = cursor.All(ctx, &sitters); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(sitters))
	for _, s := range sitters {
		ids = append(ids, s.ID.Hex())
	}
	return ids, nil
}
