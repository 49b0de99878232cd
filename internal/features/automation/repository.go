package automation

import (
	"context"
	"time"

	"go-sitter/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, id string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	ListEnabled(ctx context.Context) ([]Rule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Delete(ctx context.Context, id string) error
}

type RepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRepository(mongodb *database.MongodbDB) Repository {
	return &RepositoryImpl{
		Collection: mongodb.DB.Collection("rules"),
	}
}

func (r *RepositoryImpl) Create(ctx context.Context, rule *Rule) error {
	rule.ID = primitive.NewObjectID()
	now := time.Now()
	rule.CreatedAt = now
	rule.LastModified = now
	_, err := r.Collection.InsertOne(ctx, rule)
	return err
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id string) (*Rule, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var rule Rule
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *RepositoryImpl) List(ctx context.Context) ([]Rule, error) {
	return r.find(ctx, bson.M{})
}

func (r *RepositoryImpl) ListEnabled(ctx context.Context) ([]Rule, error) {
	return r.find(ctx, bson.M{"enabled": true})
}

func (r *RepositoryImpl) find(ctx context.Context, filter bson.M) ([]Rule, error) {
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "priority", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var rules []Rule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RepositoryImpl) SetEnabled(ctx context.Context, id string, enabled bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"enabled": enabled, "last_modified": time.Now()}})
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
