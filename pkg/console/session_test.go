package console

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfs-platform/transaction-service/pkg/console/client"
)

// fakeAPI emulates the server's transaction semantics in memory: bulk steps
// apply all-or-nothing, completion and deletion are gated, and every fetch
// returns a fresh copy.
type fakeAPI struct {
	flow *client.Flow
	txs  []*client.Transaction

	nextID       int
	createCalls  int
	storeCalls   int
	failCreateAt int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		flow: &client.Flow{
			Name: "destuffWarehouse",
			Steps: []client.FlowStep{
				{Code: "create", FromStatus: "UNKNOWN", ToStatus: "CHECK_IN", Builtin: true},
				{Code: "inspect", FromStatus: "CHECK_IN", ToStatus: "HANDOVER", Builtin: true},
				{Code: "store", FromStatus: "HANDOVER", ToStatus: "STORED", Builtin: true},
			},
		},
	}
}

func (f *fakeAPI) addTransaction(status string, packageStatuses ...string) *client.Transaction {
	f.nextID++
	tx := &client.Transaction{
		TransactionID: fmt.Sprintf("TXN-%04d", f.nextID),
		PackingListID: "PL-001",
		FlowName:      f.flow.Name,
		Status:        status,
		CreatedAt:     time.Now().Add(time.Duration(f.nextID) * time.Second),
	}
	for i, ps := range packageStatuses {
		tx.Packages = append(tx.Packages, client.Package{
			ID:        fmt.Sprintf("%s-PKG-%03d", tx.TransactionID, i+1),
			PackageNo: fmt.Sprintf("PL-001-%04d", i+1),
			Status:    ps,
		})
	}
	f.derive(tx)
	f.txs = append(f.txs, tx)
	return tx
}

func (f *fakeAPI) derive(tx *client.Transaction) {
	tx.Completable = tx.Status == client.StatusInProgress && len(tx.Packages) > 0
	for _, pkg := range tx.Packages {
		if pkg.Status != "STORED" {
			tx.Completable = false
		}
	}
	tx.Deletable = tx.Status != client.StatusDone && len(tx.Packages) == 0
}

func (f *fakeAPI) find(transactionID string) *client.Transaction {
	for _, tx := range f.txs {
		if tx.TransactionID == transactionID {
			return tx
		}
	}
	return nil
}

func copyTx(tx *client.Transaction) *client.Transaction {
	out := *tx
	out.Packages = append([]client.Package(nil), tx.Packages...)
	return &out
}

func (f *fakeAPI) CreateTransaction(_ context.Context, packingListID, flowName string) (*client.Transaction, error) {
	for _, tx := range f.txs {
		if tx.PackingListID == packingListID && tx.Status == client.StatusInProgress {
			return nil, &client.APIError{StatusCode: http.StatusConflict, Code: "CONFLICT", Message: "already in progress"}
		}
	}
	tx := f.addTransaction(client.StatusInProgress)
	return copyTx(tx), nil
}

func (f *fakeAPI) GetTransaction(_ context.Context, transactionID string) (*client.Transaction, error) {
	tx := f.find(transactionID)
	if tx == nil {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Code: "RESOURCE_NOT_FOUND", Message: "transaction not found"}
	}
	return copyTx(tx), nil
}

func (f *fakeAPI) GetActiveTransaction(_ context.Context, packingListID string) (*client.Transaction, error) {
	var latest *client.Transaction
	for _, tx := range f.txs {
		if tx.PackingListID != packingListID {
			continue
		}
		if tx.Status == client.StatusInProgress {
			return copyTx(tx), nil
		}
		if latest == nil || tx.CreatedAt.After(latest.CreatedAt) {
			latest = tx
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyTx(latest), nil
}

func (f *fakeAPI) HandleStep(_ context.Context, transactionID string, req client.StepRequest) (*client.Transaction, error) {
	tx := f.find(transactionID)
	if tx == nil {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Code: "RESOURCE_NOT_FOUND", Message: "transaction not found"}
	}
	if tx.Status == client.StatusDone {
		return nil, &client.APIError{StatusCode: http.StatusConflict, Code: "CONFLICT", Message: "transaction is already done"}
	}

	switch r := req.(type) {
	case client.CreateStep:
		f.createCalls++
		if f.failCreateAt > 0 && f.createCalls == f.failCreateAt {
			return nil, &client.APIError{StatusCode: http.StatusServiceUnavailable, Code: "SERVICE_UNAVAILABLE", Message: "injected failure"}
		}
		tx.Packages = append(tx.Packages, client.Package{
			ID:        fmt.Sprintf("%s-PKG-%03d", tx.TransactionID, len(tx.Packages)+1),
			PackageNo: fmt.Sprintf("PL-001-%04d", len(tx.Packages)+1),
			LineID:    r.LineID,
			Status:    "CHECK_IN",
		})

	case client.InspectStep:
		if err := f.advance(tx, r.PackageIDs, "CHECK_IN", "HANDOVER", ""); err != nil {
			return nil, err
		}

	case client.StoreStep:
		f.storeCalls++
		if err := f.advance(tx, r.PackageIDs, "HANDOVER", "STORED", r.LocationID); err != nil {
			return nil, err
		}

	case client.HandoverStep:
		if err := f.advance(tx, r.PackageIDs, "CHECK_IN", "HANDOVER", ""); err != nil {
			return nil, err
		}
	}

	f.derive(tx)
	return copyTx(tx), nil
}

func (f *fakeAPI) advance(tx *client.Transaction, ids []string, from, to, locationID string) error {
	byID := make(map[string]int, len(tx.Packages))
	for i, pkg := range tx.Packages {
		byID[pkg.ID] = i
	}
	for _, id := range ids {
		idx, ok := byID[id]
		if !ok || tx.Packages[idx].Status != from {
			return &client.APIError{StatusCode: http.StatusConflict, Code: "STALE_SELECTION", Message: "some selected packages are no longer eligible"}
		}
	}
	for _, id := range ids {
		idx := byID[id]
		tx.Packages[idx].Status = to
		if locationID != "" {
			tx.Packages[idx].LocationID = locationID
		}
	}
	return nil
}

func (f *fakeAPI) CompleteTransaction(_ context.Context, transactionID string) (*client.Transaction, error) {
	tx := f.find(transactionID)
	if tx == nil {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Code: "RESOURCE_NOT_FOUND", Message: "transaction not found"}
	}
	if !tx.Completable {
		return nil, &client.APIError{StatusCode: http.StatusConflict, Code: "CONFLICT", Message: "not all packages reached the terminal status"}
	}
	now := time.Now()
	tx.Status = client.StatusDone
	tx.CompletedAt = &now
	f.derive(tx)
	return copyTx(tx), nil
}

func (f *fakeAPI) DeleteTransaction(_ context.Context, transactionID string) error {
	tx := f.find(transactionID)
	if tx == nil {
		return &client.APIError{StatusCode: http.StatusNotFound, Code: "RESOURCE_NOT_FOUND", Message: "transaction not found"}
	}
	if !tx.Deletable {
		return &client.APIError{StatusCode: http.StatusConflict, Code: "CONFLICT", Message: "transaction still holds packages"}
	}
	for i, candidate := range f.txs {
		if candidate.TransactionID == transactionID {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) GetFlow(_ context.Context, name string) (*client.Flow, error) {
	if name != f.flow.Name {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Code: "RESOURCE_NOT_FOUND", Message: "flow not found"}
	}
	flow := *f.flow
	return &flow, nil
}

func TestOpenPrefersInProgressOverLatestDone(t *testing.T) {
	api := newFakeAPI()
	done := api.addTransaction(client.StatusDone, "STORED", "STORED")
	inProgress := api.addTransaction(client.StatusInProgress, "CHECK_IN")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	require.NotNil(t, s.Transaction())
	assert.Equal(t, inProgress.TransactionID, s.Transaction().TransactionID)
	assert.NotEqual(t, done.TransactionID, s.Transaction().TransactionID)
}

func TestOpenFallsBackToLatestDone(t *testing.T) {
	api := newFakeAPI()
	api.addTransaction(client.StatusDone, "STORED")
	latest := api.addTransaction(client.StatusDone, "STORED", "STORED")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	require.NotNil(t, s.Transaction())
	assert.Equal(t, latest.TransactionID, s.Transaction().TransactionID)
}

func TestOpenWithoutTransaction(t *testing.T) {
	api := newFakeAPI()

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	assert.Nil(t, s.Transaction())
	assert.False(t, s.Completable())
	assert.False(t, s.Deletable())

	require.NoError(t, s.Create(context.Background(), "destuffWarehouse"))
	require.NotNil(t, s.Transaction())
	assert.True(t, s.Deletable())
}

func TestStepEditorsAndIndexClamping(t *testing.T) {
	api := newFakeAPI()
	api.flow.Steps = append(api.flow.Steps, client.FlowStep{Code: "fumigate", FromStatus: "STORED", ToStatus: "CHECKOUT"})
	api.addTransaction(client.StatusInProgress)

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	editors := s.StepEditors()
	require.Len(t, editors, 4)
	assert.True(t, editors[0].Supported)
	assert.False(t, editors[3].Supported, "unknown step codes render as unsupported, not as errors")

	s.SelectStep(10)
	assert.Equal(t, 3, s.StepIndex())
	s.SelectStep(-5)
	assert.Equal(t, 0, s.StepIndex())
}

func TestCreateUnitsStopsAtFirstFailure(t *testing.T) {
	api := newFakeAPI()
	api.addTransaction(client.StatusInProgress)
	api.failCreateAt = 4

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	result := s.CreateUnits(context.Background(), "LINE-1", 5)

	assert.Equal(t, 5, result.Requested)
	assert.Equal(t, 3, result.Succeeded)
	require.Error(t, result.Err)

	// The refresh after the failed batch shows exactly the units created
	// before the failure.
	require.NotNil(t, s.Transaction())
	assert.Len(t, s.Transaction().Packages, 3)
}

func TestInspectSelectedBulk(t *testing.T) {
	api := newFakeAPI()
	api.addTransaction(client.StatusInProgress, "CHECK_IN", "CHECK_IN", "CHECK_IN")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))
	s.SelectStep(1)
	s.SelectAll()

	require.NoError(t, s.InspectSelected(context.Background()))

	for _, pkg := range s.Transaction().Packages {
		assert.Equal(t, "HANDOVER", pkg.Status)
	}
	assert.Empty(t, s.SelectedIDs(), "selection resets after a successful step")
}

func TestInspectStaleSelectionLeavesEverythingUntouched(t *testing.T) {
	api := newFakeAPI()
	tx := api.addTransaction(client.StatusInProgress, "CHECK_IN", "CHECK_IN")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))
	s.SelectStep(1)
	s.SelectAll()

	// Another operator advances one package after the selection was made.
	tx.Packages[0].Status = "HANDOVER"

	err := s.InspectSelected(context.Background())
	require.ErrorIs(t, err, ErrStaleSelection)

	// All-or-nothing: the second package did not move either.
	assert.Equal(t, "CHECK_IN", tx.Packages[1].Status)
}

func TestStoreSelectedRevalidatesBeforeSubmission(t *testing.T) {
	api := newFakeAPI()
	api.addTransaction(client.StatusInProgress, "HANDOVER", "HANDOVER")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))
	s.SelectStep(2)
	s.SelectAll()

	// The local snapshot goes stale between selection and submission.
	s.Transaction().Packages[0].Status = "STORED"

	result := s.StoreSelected(context.Background(), "LOC-1")
	require.ErrorIs(t, result.Err, ErrStaleSelection)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 0, api.storeCalls, "a stale selection aborts before any call is issued")
}

func TestStoreSelectedSequentialCalls(t *testing.T) {
	api := newFakeAPI()
	api.addTransaction(client.StatusInProgress, "HANDOVER", "HANDOVER", "HANDOVER")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))
	s.SelectStep(2)
	s.SelectAll()

	result := s.StoreSelected(context.Background(), "LOC-1")
	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 3, api.storeCalls, "one store call per package")

	for _, pkg := range s.Transaction().Packages {
		assert.Equal(t, "STORED", pkg.Status)
		assert.Equal(t, "LOC-1", pkg.LocationID)
	}
}

func TestStoreSelectedBatchCap(t *testing.T) {
	api := newFakeAPI()
	statuses := make([]string, MaxStoreBatch+1)
	for i := range statuses {
		statuses[i] = "HANDOVER"
	}
	api.addTransaction(client.StatusInProgress, statuses...)

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))
	s.SelectStep(2)
	s.SelectAll()

	result := s.StoreSelected(context.Background(), "LOC-1")
	require.ErrorIs(t, result.Err, ErrSelectionTooLarge)
	assert.Equal(t, 0, api.storeCalls)
}

func TestSelectAllTriState(t *testing.T) {
	api := newFakeAPI()
	api.addTransaction(client.StatusInProgress, "CHECK_IN", "CHECK_IN", "HANDOVER")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))
	s.SelectStep(1)

	eligible := s.EligiblePackages()
	require.Len(t, eligible, 2, "only packages at the step's source status are listed")

	assert.Equal(t, SelectAllUnchecked, s.SelectAllState())

	s.Select(eligible[0].ID)
	assert.Equal(t, SelectAllIndeterminate, s.SelectAllState())

	s.ToggleSelectAll()
	assert.Equal(t, SelectAllChecked, s.SelectAllState())
	assert.Len(t, s.SelectedIDs(), 2)

	s.ToggleSelectAll()
	assert.Equal(t, SelectAllUnchecked, s.SelectAllState())

	// Selecting an ineligible package is a no-op.
	s.Select(s.Transaction().Packages[2].ID)
	assert.Empty(t, s.SelectedIDs())
}

func TestCompletionGating(t *testing.T) {
	api := newFakeAPI()
	api.addTransaction(client.StatusInProgress, "STORED", "STORED", "STORED", "STORED", "HANDOVER")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	assert.False(t, s.Completable(), "4 of 5 stored keeps completion disabled")
	require.Error(t, s.Complete(context.Background()))

	s.SelectStep(2)
	s.SelectAll()
	result := s.StoreSelected(context.Background(), "LOC-1")
	require.NoError(t, result.Err)

	assert.True(t, s.Completable())
	require.NoError(t, s.Complete(context.Background()))
	assert.Equal(t, client.StatusDone, s.Transaction().Status)
}

func TestDeleteGating(t *testing.T) {
	api := newFakeAPI()
	api.addTransaction(client.StatusInProgress, "CHECK_IN")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	assert.False(t, s.Deletable())
	require.Error(t, s.Delete(context.Background()))

	api = newFakeAPI()
	api.addTransaction(client.StatusInProgress)
	s = NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	assert.True(t, s.Deletable())
	require.NoError(t, s.Delete(context.Background()))
	assert.Nil(t, s.Transaction())
}

func TestRefreshIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.addTransaction(client.StatusInProgress, "CHECK_IN", "HANDOVER")

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	require.NoError(t, s.Refresh(context.Background()))
	first := *s.Transaction()

	require.NoError(t, s.Refresh(context.Background()))
	second := *s.Transaction()

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Packages, second.Packages)
}

func TestRefreshAfterExternalDelete(t *testing.T) {
	api := newFakeAPI()
	tx := api.addTransaction(client.StatusInProgress)

	s := NewSession(api, "PL-001")
	require.NoError(t, s.Open(context.Background()))

	// The transaction disappears behind the session's back.
	require.NoError(t, api.DeleteTransaction(context.Background(), tx.TransactionID))

	require.NoError(t, s.Refresh(context.Background()))
	assert.Nil(t, s.Transaction())
}
