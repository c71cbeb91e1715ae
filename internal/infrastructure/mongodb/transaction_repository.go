package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cfs-platform/transaction-service/internal/domain"
	"github.com/cfs-platform/transaction-service/pkg/cloudevents"
	"github.com/cfs-platform/transaction-service/pkg/kafka"
	"github.com/cfs-platform/transaction-service/pkg/logging"
	"github.com/cfs-platform/transaction-service/pkg/metrics"
	"github.com/cfs-platform/transaction-service/pkg/outbox"
	outboxMongo "github.com/cfs-platform/transaction-service/pkg/outbox/mongodb"
)

const collectionPackageTransactions = "package_transactions"

type PackageTransactionRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	observer     *queryObserver
}

func NewPackageTransactionRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, logger *logging.Logger, m *metrics.Metrics) *PackageTransactionRepository {
	collection := db.Collection(collectionPackageTransactions)
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &PackageTransactionRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		observer:     newQueryObserver(logger, m),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *PackageTransactionRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "packingListId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "packingListId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "businessProcessFlow", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)

	_ = r.outboxRepo.EnsureIndexes(ctx)
}

// Save persists a transaction with its domain events in a single MongoDB
// transaction. Events go to the outbox and are published asynchronously.
func (r *PackageTransactionRepository) Save(ctx context.Context, tx *domain.PackageTransaction) (err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionPackageTransactions, "save", start, err, 1)
	}()

	tx.UpdatedAt = time.Now()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"transactionId": tx.TransactionID}
		update := bson.M{"$set": tx}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return nil, fmt.Errorf("failed to save package transaction: %w", err)
		}

		if err := r.saveOutboxEvents(sessCtx, tx); err != nil {
			return nil, err
		}

		tx.ClearDomainEvents()

		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func (r *PackageTransactionRepository) saveOutboxEvents(sessCtx mongo.SessionContext, tx *domain.PackageTransaction) error {
	domainEvents := tx.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))

	for _, event := range domainEvents {
		var cloudEvent *cloudevents.CFSCloudEvent
		switch e := event.(type) {
		case *domain.TransactionCreatedEvent:
			cloudEvent = r.eventFactory.CreateEvent(sessCtx, e.EventType(), "transaction/"+e.TransactionID, e)
		case *domain.PackageCreatedEvent:
			cloudEvent = r.eventFactory.CreateEvent(sessCtx, e.EventType(), "transaction/"+e.TransactionID, e)
		case *domain.StepExecutedEvent:
			cloudEvent = r.eventFactory.CreateEvent(sessCtx, e.EventType(), "transaction/"+e.TransactionID, e)
		case *domain.TransactionCompletedEvent:
			cloudEvent = r.eventFactory.CreateEvent(sessCtx, e.EventType(), "transaction/"+e.TransactionID, e)
		case *domain.TransactionDeletedEvent:
			cloudEvent = r.eventFactory.CreateEvent(sessCtx, e.EventType(), "transaction/"+e.TransactionID, e)
		default:
			continue
		}

		cloudEvent.WithTransaction(tx.TransactionID, tx.PackingListID, tx.FlowName)

		outboxEvent, err := outbox.NewOutboxEvent(
			tx.TransactionID,
			"PackageTransaction",
			kafka.Topics.TransactionEvents,
			cloudEvent,
		)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}

		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if len(outboxEvents) > 0 {
		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}

	return nil
}

func (r *PackageTransactionRepository) FindByID(ctx context.Context, transactionID string) (tx *domain.PackageTransaction, err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionPackageTransactions, "findOne", start, err, docCount(tx != nil))
	}()

	var found domain.PackageTransaction
	err = r.collection.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&found)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *PackageTransactionRepository) FindByPackingList(ctx context.Context, packingListID string) (txs []*domain.PackageTransaction, err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionPackageTransactions, "find", start, err, int64(len(txs)))
	}()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"packingListId": packingListID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	err = cursor.All(ctx, &txs)
	return txs, err
}

func (r *PackageTransactionRepository) FindInProgressByPackingList(ctx context.Context, packingListID string) (tx *domain.PackageTransaction, err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionPackageTransactions, "findOne", start, err, docCount(tx != nil))
	}()

	filter := bson.M{
		"packingListId": packingListID,
		"status":        domain.TransactionInProgress,
	}
	var found domain.PackageTransaction
	err = r.collection.FindOne(ctx, filter).Decode(&found)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// Delete removes the transaction document and writes the aggregate's
// deletion events to the outbox in the same MongoDB transaction.
func (r *PackageTransactionRepository) Delete(ctx context.Context, tx *domain.PackageTransaction) (err error) {
	start := time.Now()
	defer func() {
		r.observer.observe(ctx, collectionPackageTransactions, "delete", start, err, 1)
	}()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.collection.DeleteOne(sessCtx, bson.M{"transactionId": tx.TransactionID}); err != nil {
			return nil, fmt.Errorf("failed to delete package transaction: %w", err)
		}

		if err := r.saveOutboxEvents(sessCtx, tx); err != nil {
			return nil, err
		}

		tx.ClearDomainEvents()

		return nil, nil
	})

	return err
}

// GetOutboxRepository returns the outbox repository for this service
func (r *PackageTransactionRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}
