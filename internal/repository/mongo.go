package repository

import (
	"context"

	mongoInfra "github.com/RishiKendai/lichen/internal/infra/mongo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository wraps the collection calls the result repositories need
type MongoRepository struct {
	db *mongo.Database
}

func NewMongoRepository(client *mongoInfra.Client) *MongoRepository {
	return &MongoRepository{
		db: client.Database,
	}
}

// InsertMany is a no-op for an empty batch; the driver rejects one
func (r *MongoRepository) InsertMany(ctx context.Context, collection string, documents []interface{}, opts ...*options.InsertManyOptions) error {
	if len(documents) == 0 {
		return nil
	}
	_, err := r.db.Collection(collection).InsertMany(ctx, documents, opts...)
	return err
}

// Upsert replaces the document matching filter, inserting it when none exists
func (r *MongoRepository) Upsert(ctx context.Context, collection string, filter, document interface{}) error {
	_, err := r.db.Collection(collection).ReplaceOne(ctx, filter, document, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) DeleteMany(ctx context.Context, collection string, filter interface{}) (int64, error) {
	res, err := r.db.Collection(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) FindOne(ctx context.Context, collection string, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return r.db.Collection(collection).FindOne(ctx, filter, opts...)
}
