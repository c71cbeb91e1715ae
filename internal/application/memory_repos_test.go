package application

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/cfs-platform/transaction-service/internal/domain"
	"github.com/cfs-platform/transaction-service/pkg/logging"
)

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("transaction-service-test")
	cfg.Output = io.Discard
	return logging.New(cfg)
}

type memTransactionRepo struct {
	mu  sync.Mutex
	txs map[string]*domain.PackageTransaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{txs: make(map[string]*domain.PackageTransaction)}
}

func (r *memTransactionRepo) Save(_ context.Context, tx *domain.PackageTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tx
	cp.Packages = append([]domain.PackageRef(nil), tx.Packages...)
	r.txs[tx.TransactionID] = &cp
	tx.ClearDomainEvents()
	return nil
}

func (r *memTransactionRepo) FindByID(_ context.Context, transactionID string) (*domain.PackageTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *tx
	cp.Packages = append([]domain.PackageRef(nil), tx.Packages...)
	return &cp, nil
}

func (r *memTransactionRepo) FindByPackingList(_ context.Context, packingListID string) ([]*domain.PackageTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PackageTransaction
	for _, tx := range r.txs {
		if tx.PackingListID == packingListID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memTransactionRepo) FindInProgressByPackingList(ctx context.Context, packingListID string) (*domain.PackageTransaction, error) {
	all, _ := r.FindByPackingList(ctx, packingListID)
	for _, tx := range all {
		if tx.Status == domain.TransactionInProgress {
			return tx, nil
		}
	}
	return nil, nil
}

func (r *memTransactionRepo) Delete(_ context.Context, tx *domain.PackageTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.txs, tx.TransactionID)
	return nil
}

type memFlowRepo struct {
	mu    sync.Mutex
	flows map[string]*domain.Flow
}

func newMemFlowRepo() *memFlowRepo {
	return &memFlowRepo{flows: make(map[string]*domain.Flow)}
}

func (r *memFlowRepo) Save(_ context.Context, flow *domain.Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *flow
	r.flows[flow.Name] = &cp
	return nil
}

func (r *memFlowRepo) FindByName(_ context.Context, name string) (*domain.Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flow, ok := r.flows[name]
	if !ok {
		return nil, nil
	}
	cp := *flow
	return &cp, nil
}

func (r *memFlowRepo) FindAll(_ context.Context) ([]*domain.Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Flow, 0, len(r.flows))
	for _, flow := range r.flows {
		cp := *flow
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memPackingListRepo struct {
	mu    sync.Mutex
	lists map[string]*domain.PackingList
}

func newMemPackingListRepo() *memPackingListRepo {
	return &memPackingListRepo{lists: make(map[string]*domain.PackingList)}
}

func (r *memPackingListRepo) Save(_ context.Context, list *domain.PackingList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *list
	r.lists[list.PackingListID] = &cp
	return nil
}

func (r *memPackingListRepo) FindByID(_ context.Context, packingListID string) (*domain.PackingList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, ok := r.lists[packingListID]
	if !ok {
		return nil, nil
	}
	cp := *list
	return &cp, nil
}

type memLocationRepo struct {
	mu   sync.Mutex
	locs map[string]*domain.StorageLocation
}

func newMemLocationRepo() *memLocationRepo {
	return &memLocationRepo{locs: make(map[string]*domain.StorageLocation)}
}

func (r *memLocationRepo) Save(_ context.Context, loc *domain.StorageLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *loc
	r.locs[loc.LocationID] = &cp
	return nil
}

func (r *memLocationRepo) FindByID(_ context.Context, locationID string) (*domain.StorageLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locs[locationID]
	if !ok {
		return nil, nil
	}
	cp := *loc
	return &cp, nil
}

func (r *memLocationRepo) FindByZone(_ context.Context, zone string) ([]*domain.StorageLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.StorageLocation
	for _, loc := range r.locs {
		if loc.Zone == zone {
			cp := *loc
			out = append(out, &cp)
		}
	}
	return out, nil
}
