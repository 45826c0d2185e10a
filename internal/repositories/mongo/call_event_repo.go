package mongo

import (
	"context"
	"time"

	"github.com/yoockh/labourline/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CallEventRepository interface {
	Insert(ctx context.Context, e *models.CallEvent) error
	ListByCall(ctx context.Context, callID string, limit int64) ([]models.CallEvent, error)
}

type callEventRepo struct {
	col *mongo.Collection
}

func NewCallEventRepo(db *mongo.Database) CallEventRepository {
	return &callEventRepo{col: db.Collection("call_events")}
}

func (r *callEventRepo) Insert(ctx context.Context, e *models.CallEvent) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, e)
	return err
}

func (r *callEventRepo) ListByCall(ctx context.Context, callID string, limit int64) ([]models.CallEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, bson.M{"call_id": callID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CallEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
