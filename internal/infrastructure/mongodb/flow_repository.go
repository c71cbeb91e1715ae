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

const collectionFlows = "business_process_flows"

type FlowRepository struct {
	collection *mongo.Collection
	observer   *queryObserver
}

func NewFlowRepository(db *mongo.Database, logger *logging.Logger, m *metrics.Metrics) *FlowRepository {
	collection := db.Collection(collectionFlows)

	repo := &FlowRepository{
		collection: collection,
		observer:   newQueryObserver(logger, m),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *FlowRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *FlowRepository) Save(ctx context.Context, flow *domain.Flow) (err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionFlows, "save", start, err, 1)
	}()

	flow.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"name": flow.Name}
	update := bson.M{"$set": flow}

	_, err = r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *FlowRepository) FindByName(ctx context.Context, name string) (flow *domain.Flow, err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionFlows, "findOne", start, err, docCount(flow != nil))
	}()

	var found domain.Flow
	err = r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&found)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *FlowRepository) FindAll(ctx context.Context) (flows []*domain.Flow, err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionFlows, "find", start, err, int64(len(flows)))
	}()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	err = cursor.All(ctx, &flows)
	return flows, err
}
