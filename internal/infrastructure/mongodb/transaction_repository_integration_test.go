//go:build integration

package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cfs-platform/transaction-service/internal/domain"
	"github.com/cfs-platform/transaction-service/pkg/cloudevents"
	tctesting "github.com/cfs-platform/transaction-service/pkg/testing"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	container, err := tctesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close(context.Background()) })

	mongoClient, err := container.GetClient(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { mongoClient.Disconnect(context.Background()) })

	return mongoClient.Database("cfs_transactions_test")
}

func TestSavePersistsTransactionAndOutboxEvents(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()

	factory := cloudevents.NewEventFactory(cloudevents.SourceTransactions)
	repo := NewPackageTransactionRepository(db, factory, nil, nil)

	tx := domain.NewPackageTransaction("TXN-IT-1", "PL-001", "destuffWarehouse")
	step := domain.Step{Code: domain.StepCreate, FromStatus: domain.PositionUnknown, ToStatus: domain.PositionCheckIn}
	require.NoError(t, tx.ApplyStep(step, domain.CreateStepRequest{LineID: "LINE-1", PackageNo: "PL-001-0001"}))

	require.NoError(t, repo.Save(ctx, tx))
	assert.Empty(t, tx.GetDomainEvents(), "domain events are drained into the outbox on save")

	found, err := repo.FindByID(ctx, "TXN-IT-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "PL-001", found.PackingListID)
	assert.Len(t, found.Packages, 1)
	assert.Equal(t, domain.PositionCheckIn, found.Packages[0].Status)

	// One created, one package-created, one step-executed event.
	unpublished, err := repo.GetOutboxRepository().FindUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, unpublished, 3)
	for _, evt := range unpublished {
		assert.Equal(t, "TXN-IT-1", evt.AggregateID)
		assert.Equal(t, "PackageTransaction", evt.AggregateType)
	}
}

func TestFindInProgressByPackingList(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()

	factory := cloudevents.NewEventFactory(cloudevents.SourceTransactions)
	repo := NewPackageTransactionRepository(db, factory, nil, nil)

	older := domain.NewPackageTransaction("TXN-IT-OLD", "PL-002", "destuffWarehouse")
	older.Status = domain.TransactionDone
	now := time.Now().UTC()
	older.CompletedAt = &now
	require.NoError(t, repo.Save(ctx, older))

	current := domain.NewPackageTransaction("TXN-IT-NEW", "PL-002", "destuffWarehouse")
	require.NoError(t, repo.Save(ctx, current))

	found, err := repo.FindInProgressByPackingList(ctx, "PL-002")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "TXN-IT-NEW", found.TransactionID)

	all, err := repo.FindByPackingList(ctx, "PL-002")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := repo.FindInProgressByPackingList(ctx, "PL-UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDeleteWritesDeletionEventToOutbox(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()

	factory := cloudevents.NewEventFactory(cloudevents.SourceTransactions)
	repo := NewPackageTransactionRepository(db, factory, nil, nil)

	tx := domain.NewPackageTransaction("TXN-IT-DEL", "PL-003", "destuffWarehouse")
	require.NoError(t, repo.Save(ctx, tx))

	reloaded, err := repo.FindByID(ctx, "TXN-IT-DEL")
	require.NoError(t, err)
	require.NoError(t, reloaded.MarkDeleted())
	require.NoError(t, repo.Delete(ctx, reloaded))

	gone, err := repo.FindByID(ctx, "TXN-IT-DEL")
	require.NoError(t, err)
	assert.Nil(t, gone)

	unpublished, err := repo.GetOutboxRepository().FindUnpublished(ctx, 10)
	require.NoError(t, err)

	var deleted bool
	for _, evt := range unpublished {
		if evt.EventType == cloudevents.TransactionDeleted {
			deleted = true
		}
	}
	assert.True(t, deleted, "deletion writes an event to the outbox in the same transaction")
}

func TestOutboxMarkPublished(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()

	factory := cloudevents.NewEventFactory(cloudevents.SourceTransactions)
	repo := NewPackageTransactionRepository(db, factory, nil, nil)

	tx := domain.NewPackageTransaction("TXN-IT-PUB", "PL-004", "destuffWarehouse")
	require.NoError(t, repo.Save(ctx, tx))

	outboxRepo := repo.GetOutboxRepository()
	unpublished, err := outboxRepo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, unpublished)

	require.NoError(t, outboxRepo.MarkPublished(ctx, unpublished[0].ID))

	remaining, err := outboxRepo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, len(unpublished)-1)
}
