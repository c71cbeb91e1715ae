package domain

import "context"

// PackageTransactionRepository persists package transactions
type PackageTransactionRepository interface {
	Save(ctx context.Context, tx *PackageTransaction) error
	FindByID(ctx context.Context, transactionID string) (*PackageTransaction, error)
	FindByPackingList(ctx context.Context, packingListID string) ([]*PackageTransaction, error)
	FindInProgressByPackingList(ctx context.Context, packingListID string) (*PackageTransaction, error)
	Delete(ctx context.Context, tx *PackageTransaction) error
}

// FlowRepository persists business process flow definitions
type FlowRepository interface {
	Save(ctx context.Context, flow *Flow) error
	FindByName(ctx context.Context, name string) (*Flow, error)
	FindAll(ctx context.Context) ([]*Flow, error)
}

// PackingListRepository looks up packing lists and their cargo lines
type PackingListRepository interface {
	Save(ctx context.Context, list *PackingList) error
	FindByID(ctx context.Context, packingListID string) (*PackingList, error)
}

// StorageLocationRepository looks up storage locations
type StorageLocationRepository interface {
	Save(ctx context.Context, location *StorageLocation) error
	FindByID(ctx context.Context, locationID string) (*StorageLocation, error)
	FindByZone(ctx context.Context, zone string) ([]*StorageLocation, error)
}
