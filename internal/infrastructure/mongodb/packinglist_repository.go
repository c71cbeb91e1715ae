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

const collectionPackingLists = "packing_lists"

type PackingListRepository struct {
	collection *mongo.Collection
	observer   *queryObserver
}

func NewPackingListRepository(db *mongo.Database, logger *logging.Logger, m *metrics.Metrics) *PackingListRepository {
	collection := db.Collection(collectionPackingLists)

	repo := &PackingListRepository{
		collection: collection,
		observer:   newQueryObserver(logger, m),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *PackingListRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "packingListId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "hblNo", Value: 1}}},
		{Keys: bson.D{{Key: "containerNo", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *PackingListRepository) Save(ctx context.Context, list *domain.PackingList) (err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionPackingLists, "save", start, err, 1)
	}()

	list.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"packingListId": list.PackingListID}
	update := bson.M{"$set": list}

	_, err = r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *PackingListRepository) FindByID(ctx context.Context, packingListID string) (list *domain.PackingList, err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionPackingLists, "findOne", start, err, docCount(list != nil))
	}()

	var found domain.PackingList
	err = r.collection.FindOne(ctx, bson.M{"packingListId": packingListID}).Decode(&found)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}
