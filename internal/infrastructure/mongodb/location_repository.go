package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cfs-platform/transaction-service/internal/domain"
	"github.com/cfs-platform/transaction-service/pkg/logging"
	"github.com/cfs-platform/transaction-service/pkg/metrics"
)

const collectionStorageLocations = "storage_locations"

type StorageLocationRepository struct {
	collection *mongo.Collection
	observer   *queryObserver
}

func NewStorageLocationRepository(db *mongo.Database, logger *logging.Logger, m *metrics.Metrics) *StorageLocationRepository {
	collection := db.Collection(collectionStorageLocations)

	repo := &StorageLocationRepository{
		collection: collection,
		observer:   newQueryObserver(logger, m),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *StorageLocationRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "locationId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "zone", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *StorageLocationRepository) Save(ctx context.Context, location *domain.StorageLocation) (err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionStorageLocations, "save", start, err, 1)
	}()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"locationId": location.LocationID}
	update := bson.M{"$set": location}

	_, err = r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *StorageLocationRepository) FindByID(ctx context.Context, locationID string) (location *domain.StorageLocation, err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionStorageLocations, "findOne", start, err, docCount(location != nil))
	}()

	var found domain.StorageLocation
	err = r.collection.FindOne(ctx, bson.M{"locationId": locationID}).Decode(&found)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *StorageLocationRepository) FindByZone(ctx context.Context, zone string) (locations []*domain.StorageLocation, err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionStorageLocations, "find", start, err, int64(len(locations)))
	}()

	opts := options.Find().SetSort(bson.D{{Key: "locationId", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"zone": zone}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	err = cursor.All(ctx, &locations)
	return locations, err
}
