package application

import "github.com/cfs-platform/transaction-service/internal/domain"

// CreateTransactionCommand opens a new package transaction for a packing list
type CreateTransactionCommand struct {
	TransactionID string
	PackingListID string
	FlowName      string
}

// HandleStepCommand is the single mutation entry point for every step kind.
// The step code decides which payload fields apply.
type HandleStepCommand struct {
	TransactionID string
	Step          domain.StepCode
	LineID        string
	PackageNo     string
	PackageIDs    []string
	LocationID    string
}

// CompleteTransactionCommand closes a transaction once every package reached
// the flow's terminal status
type CompleteTransactionCommand struct {
	TransactionID string
}

// DeleteTransactionCommand removes an empty transaction
type DeleteTransactionCommand struct {
	TransactionID string
}
