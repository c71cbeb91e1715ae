package domain

import "time"

// DomainEvent represents a domain event interface
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// TransactionCreatedEvent is emitted when a package transaction is opened
type TransactionCreatedEvent struct {
	TransactionID string    `json:"transactionId"`
	PackingListID string    `json:"packingListId"`
	FlowName      string    `json:"businessProcessFlow"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (e *TransactionCreatedEvent) EventType() string     { return "cfs.transaction.created" }
func (e *TransactionCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// PackageCreatedEvent is emitted when a cargo package enters a transaction
type PackageCreatedEvent struct {
	TransactionID string         `json:"transactionId"`
	PackageID     string         `json:"packageId"`
	PackageNo     string         `json:"packageNo"`
	LineID        string         `json:"lineId,omitempty"`
	Status        PositionStatus `json:"positionStatus"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (e *PackageCreatedEvent) EventType() string     { return "cfs.transaction.package-created" }
func (e *PackageCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// StepExecutedEvent is emitted on every successful step invocation
type StepExecutedEvent struct {
	TransactionID string         `json:"transactionId"`
	FlowName      string         `json:"businessProcessFlow"`
	StepCode      StepCode       `json:"step"`
	FromStatus    PositionStatus `json:"fromStatus"`
	ToStatus      PositionStatus `json:"toStatus"`
	PackageCount  int            `json:"packageCount"`
	ExecutedAt    time.Time      `json:"executedAt"`
}

func (e *StepExecutedEvent) EventType() string     { return "cfs.transaction.step-executed" }
func (e *StepExecutedEvent) OccurredAt() time.Time { return e.ExecutedAt }

// TransactionCompletedEvent is emitted when every package reached the
// flow's terminal status and the transaction was closed
type TransactionCompletedEvent struct {
	TransactionID string    `json:"transactionId"`
	PackingListID string    `json:"packingListId"`
	FlowName      string    `json:"businessProcessFlow"`
	PackageCount  int       `json:"packageCount"`
	CompletedAt   time.Time `json:"completedAt"`
}

func (e *TransactionCompletedEvent) EventType() string     { return "cfs.transaction.completed" }
func (e *TransactionCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// TransactionDeletedEvent is emitted when an empty transaction is removed
type TransactionDeletedEvent struct {
	TransactionID string    `json:"transactionId"`
	PackingListID string    `json:"packingListId"`
	DeletedAt     time.Time `json:"deletedAt"`
}

func (e *TransactionDeletedEvent) EventType() string     { return "cfs.transaction.deleted" }
func (e *TransactionDeletedEvent) OccurredAt() time.Time { return e.DeletedAt }
