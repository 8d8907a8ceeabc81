package repository

import (
	"context"
	"fmt"
	"time"

	"bakery/internal/config"
	"bakery/internal/domain/model"
	repo "bakery/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MONGO_URI が設定されているときの接続
func NewMongoClient(cfg config.MongoDBConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

type auditLogMongoRepository struct {
	collection *mongo.Collection
}

func NewAuditLogMongoRepository(client *mongo.Client, cfg config.MongoDBConfig) repo.AuditLogRepository {
	return &auditLogMongoRepository{
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}
}

func (r *auditLogMongoRepository) Create(ctx context.Context, log model.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, log)
	return err
}

func (r *auditLogMongoRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	f := auditLogBSONFilter(filter)

	limit, offset := normalizeAuditPaging(filter)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []model.AuditLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// 絞り込み条件をbsonに変換
func auditLogBSONFilter(filter repo.AuditLogFilter) bson.M {
	f := bson.M{}
	if filter.ActorUserID != nil {
		f["actor_user_id"] = *filter.ActorUserID
	}
	if filter.Action != nil {
		f["action"] = string(*filter.Action)
	}
	if filter.ResourceType != nil {
		f["resource_type"] = string(*filter.ResourceType)
	}
	if filter.ResourceID != nil {
		f["resource_id"] = *filter.ResourceID
	}

	created := bson.M{}
	if filter.CreatedFrom != nil {
		created["$gte"] = *filter.CreatedFrom
	}
	if filter.CreatedTo != nil {
		created["$lte"] = *filter.CreatedTo
	}
	if len(created) > 0 {
		f["created_at"] = created
	}
	return f
}
