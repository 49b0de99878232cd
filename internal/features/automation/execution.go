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

// RuleExecution is the append-only audit trail of fired rules. It is never
// read back for control flow.
type RuleExecution struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RuleID     string             `json:"ruleId" bson:"rule_id"`
	BookingID  string             `json:"bookingId" bson:"booking_id"`
	Change     string             `json:"change" bson:"change"`
	ExecutedAt time.Time          `json:"executedAt" bson:"executed_at"`
	Context    map[string]string  `json:"context" bson:"context"`
}

type ExecutionRepository interface {
	Append(ctx context.Context, execution *RuleExecution) error
	List(ctx context.Context, bookingID string, limit int64) ([]RuleExecution, error)
}

type ExecutionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewExecutionRepository(mongodb *database.MongodbDB) ExecutionRepository {
	return &ExecutionRepositoryImpl{
		Collection: mongodb.DB.Collection("rule_executions"),
	}
}

func (r *ExecutionRepositoryImpl) Append(ctx context.Context, execution *RuleExecution) error {
	execution.ID = primitive.NewObjectID()
	_, err := r.Collection.InsertOne(ctx, execution)
	return err
}

func (r *ExecutionRepositoryImpl) List(ctx context.Context, bookingID string, limit int64) ([]RuleExecution, error) {
	filter := bson.M{}
	if bookingID != "" {
		filter["booking_id"] = bookingID
	}
	if limit < 1 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "executed_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var executions []RuleExecution
	if err = cursor.All(ctx, &executions); err != nil {
		return nil, err
	}
	return executions, nil
}
