package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfs-platform/transaction-service/internal/domain"
)

type fixture struct {
	svc          *TransactionService
	flows        *memFlowRepo
	transactions *memTransactionRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	flows := newMemFlowRepo()
	transactions := newMemTransactionRepo()
	packingLists := newMemPackingListRepo()
	locations := newMemLocationRepo()
	ctx := context.Background()

	require.NoError(t, flows.Save(ctx, &domain.Flow{
		Name: "destuffWarehouse",
		Steps: []domain.Step{
			{Code: domain.StepCreate, FromStatus: domain.PositionUnknown, ToStatus: domain.PositionCheckIn},
			{Code: domain.StepInspect, FromStatus: domain.PositionCheckIn, ToStatus: domain.PositionHandover},
			{Code: domain.StepStore, FromStatus: domain.PositionHandover, ToStatus: domain.PositionStored},
		},
	}))
	require.NoError(t, flows.Save(ctx, &domain.Flow{Name: "emptyFlow"}))

	require.NoError(t, packingLists.Save(ctx, &domain.PackingList{
		PackingListID: "PL-001",
		HBLNo:         "HBL-77",
		Lines: []domain.PackingListLine{
			{LineID: "LINE-1", CargoName: "machine parts", PackageCount: 10},
		},
	}))

	require.NoError(t, locations.Save(ctx, &domain.StorageLocation{
		LocationID: "LOC-1", DisplayCode: "A-01-01", Zone: "A", Capacity: 100,
	}))
	require.NoError(t, locations.Save(ctx, &domain.StorageLocation{
		LocationID: "LOC-FULL", DisplayCode: "A-01-02", Zone: "A", Capacity: 1, CurrentQuantity: 1,
	}))

	return &fixture{
		svc:          NewTransactionService(transactions, flows, packingLists, locations, testLogger()),
		flows:        flows,
		transactions: transactions,
	}
}

func (f *fixture) createUnits(t *testing.T, transactionID string, n int) []string {
	t.Helper()
	var tx *domain.PackageTransaction
	var err error
	for i := 0; i < n; i++ {
		tx, err = f.svc.HandleStep(context.Background(), HandleStepCommand{
			TransactionID: transactionID,
			Step:          domain.StepCreate,
			LineID:        "LINE-1",
		})
		require.NoError(t, err)
	}
	ids := make([]string, 0, n)
	for _, pkg := range tx.Packages {
		ids = append(ids, pkg.ID)
	}
	return ids
}

func TestCreateTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001",
		FlowName:      "destuffWarehouse",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionInProgress, tx.Status)
	assert.NotEmpty(t, tx.TransactionID)

	// A second in-progress transaction for the same packing list is rejected.
	_, err = f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001",
		FlowName:      "destuffWarehouse",
	})
	assert.ErrorIs(t, err, domain.ErrTransactionInProgress)
}

func TestCreateTransactionUnknownFlow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateTransaction(context.Background(), CreateTransactionCommand{
		PackingListID: "PL-001",
		FlowName:      "noSuchFlow",
	})
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestCreateTransactionMisconfiguredFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.flows.flows["broken"] = &domain.Flow{
		Name: "broken",
		Steps: []domain.Step{
			{Code: domain.StepCreate, FromStatus: domain.PositionUnknown, ToStatus: domain.PositionCheckIn},
			{Code: domain.StepStore, FromStatus: domain.PositionHandover, ToStatus: domain.PositionStored},
		},
	}

	_, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001",
		FlowName:      "broken",
	})
	assert.ErrorIs(t, err, domain.ErrFlowChainBroken)
}

func TestCreateTransactionUnknownPackingList(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateTransaction(context.Background(), CreateTransactionCommand{
		PackingListID: "PL-404",
		FlowName:      "destuffWarehouse",
	})
	assert.ErrorIs(t, err, domain.ErrPackingListNotFound)
}

func TestHandleStepCreateGeneratesPackageNo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001",
		FlowName:      "destuffWarehouse",
	})
	require.NoError(t, err)

	updated, err := f.svc.HandleStep(ctx, HandleStepCommand{
		TransactionID: tx.TransactionID,
		Step:          domain.StepCreate,
		LineID:        "LINE-1",
	})
	require.NoError(t, err)
	require.Len(t, updated.Packages, 1)
	assert.Equal(t, "PL-001-0001", updated.Packages[0].PackageNo)
	assert.Equal(t, domain.PositionCheckIn, updated.Packages[0].Status)
}

func TestHandleStepUnknownLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001",
		FlowName:      "destuffWarehouse",
	})
	require.NoError(t, err)

	_, err = f.svc.HandleStep(ctx, HandleStepCommand{
		TransactionID: tx.TransactionID,
		Step:          domain.StepCreate,
		LineID:        "LINE-404",
	})
	assert.ErrorIs(t, err, domain.ErrLineNotFound)
}

func TestHandleStepNotInFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001",
		FlowName:      "destuffWarehouse",
	})
	require.NoError(t, err)

	_, err = f.svc.HandleStep(ctx, HandleStepCommand{
		TransactionID: tx.TransactionID,
		Step:          domain.StepHandover,
	})
	assert.ErrorIs(t, err, domain.ErrStepNotInFlow)
}

func TestHandleStepStoreValidatesLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001",
		FlowName:      "destuffWarehouse",
	})
	require.NoError(t, err)
	ids := f.createUnits(t, tx.TransactionID, 2)

	_, err = f.svc.HandleStep(ctx, HandleStepCommand{
		TransactionID: tx.TransactionID,
		Step:          domain.StepInspect,
		PackageIDs:    ids,
	})
	require.NoError(t, err)

	_, err = f.svc.HandleStep(ctx, HandleStepCommand{
		TransactionID: tx.TransactionID,
		Step:          domain.StepStore,
		PackageIDs:    ids,
		LocationID:    "LOC-404",
	})
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)

	_, err = f.svc.HandleStep(ctx, HandleStepCommand{
		TransactionID: tx.TransactionID,
		Step:          domain.StepStore,
		PackageIDs:    ids,
		LocationID:    "LOC-FULL",
	})
	assert.ErrorIs(t, err, domain.ErrLocationFull)

	updated, err := f.svc.HandleStep(ctx, HandleStepCommand{
		TransactionID: tx.TransactionID,
		Step:          domain.StepStore,
		PackageIDs:    ids,
		LocationID:    "LOC-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CountAtStatus(domain.PositionStored))
}

func TestGetActiveTransactionPrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No transaction yet.
	active, err := f.svc.GetActiveTransaction(ctx, "PL-001")
	require.NoError(t, err)
	assert.Nil(t, active)

	// Run a full cycle so a done transaction exists.
	done, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001", FlowName: "destuffWarehouse",
	})
	require.NoError(t, err)
	ids := f.createUnits(t, done.TransactionID, 1)
	_, err = f.svc.HandleStep(ctx, HandleStepCommand{TransactionID: done.TransactionID, Step: domain.StepInspect, PackageIDs: ids})
	require.NoError(t, err)
	_, err = f.svc.HandleStep(ctx, HandleStepCommand{TransactionID: done.TransactionID, Step: domain.StepStore, PackageIDs: ids, LocationID: "LOC-1"})
	require.NoError(t, err)
	_, err = f.svc.CompleteTransaction(ctx, CompleteTransactionCommand{TransactionID: done.TransactionID})
	require.NoError(t, err)

	// Latest done transaction is active when nothing is in progress.
	active, err = f.svc.GetActiveTransaction(ctx, "PL-001")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, done.TransactionID, active.TransactionID)

	// An in-progress transaction takes precedence over the done one.
	fresh, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001", FlowName: "destuffWarehouse",
	})
	require.NoError(t, err)

	active, err = f.svc.GetActiveTransaction(ctx, "PL-001")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, fresh.TransactionID, active.TransactionID)
}

func TestCompleteTransactionServerSideGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001", FlowName: "destuffWarehouse",
	})
	require.NoError(t, err)
	ids := f.createUnits(t, tx.TransactionID, 2)

	// Not all packages terminal: server rejects regardless of the caller.
	_, err = f.svc.CompleteTransaction(ctx, CompleteTransactionCommand{TransactionID: tx.TransactionID})
	assert.ErrorIs(t, err, domain.ErrNotCompletable)

	_, err = f.svc.HandleStep(ctx, HandleStepCommand{TransactionID: tx.TransactionID, Step: domain.StepInspect, PackageIDs: ids})
	require.NoError(t, err)
	_, err = f.svc.HandleStep(ctx, HandleStepCommand{TransactionID: tx.TransactionID, Step: domain.StepStore, PackageIDs: ids, LocationID: "LOC-1"})
	require.NoError(t, err)

	completed, err := f.svc.CompleteTransaction(ctx, CompleteTransactionCommand{TransactionID: tx.TransactionID})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionDone, completed.Status)
}

func TestDeleteTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001", FlowName: "destuffWarehouse",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTransaction(ctx, DeleteTransactionCommand{TransactionID: tx.TransactionID}))

	_, err = f.svc.GetTransaction(ctx, tx.TransactionID)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestDeleteTransactionWithPackagesRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001", FlowName: "destuffWarehouse",
	})
	require.NoError(t, err)
	f.createUnits(t, tx.TransactionID, 1)

	err = f.svc.DeleteTransaction(ctx, DeleteTransactionCommand{TransactionID: tx.TransactionID})
	assert.ErrorIs(t, err, domain.ErrTransactionNotEmpty)
}

func TestRefetchIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001", FlowName: "destuffWarehouse",
	})
	require.NoError(t, err)
	f.createUnits(t, tx.TransactionID, 3)

	first, err := f.svc.GetTransaction(ctx, tx.TransactionID)
	require.NoError(t, err)
	second, err := f.svc.GetTransaction(ctx, tx.TransactionID)
	require.NoError(t, err)

	assert.Equal(t, first.CountAtStatus(domain.PositionCheckIn), second.CountAtStatus(domain.PositionCheckIn))
	assert.Equal(t, len(first.Packages), len(second.Packages))
}

func TestCompleteEmptyFlowRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionCommand{
		PackingListID: "PL-001", FlowName: "emptyFlow",
	})
	require.NoError(t, err)

	_, err = f.svc.CompleteTransaction(ctx, CompleteTransactionCommand{TransactionID: tx.TransactionID})
	assert.ErrorIs(t, err, domain.ErrNotCompletable)
}
