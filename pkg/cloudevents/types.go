package cloudevents

import (
	"time"
)

// EventType constants for CFS domain events
const (
	// Transaction lifecycle events
	TransactionCreated   = "cfs.transaction.created"
	TransactionCompleted = "cfs.transaction.completed"
	TransactionDeleted   = "cfs.transaction.deleted"

	// Package events
	PackageCreated = "cfs.transaction.package-created"
	StepExecuted   = "cfs.transaction.step-executed"

	// Flow configuration events
	FlowUpdated = "cfs.flow.updated"
)

// Source constants for event sources
const (
	SourceTransactions = "/cfs/transaction-service"
	SourceFlows        = "/cfs/flow-config"
)

// CFSCloudEvent represents a CloudEvents v1.0 compliant event for the CFS platform
type CFSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// CFS-specific extensions
	CorrelationID string `json:"cfscorrelationid,omitempty"`
	TransactionID string `json:"cfstransactionid,omitempty"`
	PackingListID string `json:"cfspackinglistid,omitempty"`
	FlowName      string `json:"cfsflowname,omitempty"`
}

// TransactionCreatedData is the payload for TransactionCreated events
type TransactionCreatedData struct {
	TransactionID string    `json:"transactionId"`
	PackingListID string    `json:"packingListId"`
	FlowName      string    `json:"businessProcessFlow"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PackageCreatedData is the payload for PackageCreated events
type PackageCreatedData struct {
	TransactionID string `json:"transactionId"`
	PackageID     string `json:"packageId"`
	PackageNo     string `json:"packageNo"`
	LineID        string `json:"lineId"`
	Status        string `json:"positionStatus"`
}

// StepExecutedData is the payload for StepExecuted events
type StepExecutedData struct {
	TransactionID string   `json:"transactionId"`
	StepCode      string   `json:"stepCode"`
	PackageIDs    []string `json:"packageIds"`
	FromStatus    string   `json:"fromStatus"`
	ToStatus      string   `json:"toStatus"`
	LocationID    string   `json:"locationId,omitempty"`
}

// TransactionCompletedData is the payload for TransactionCompleted events
type TransactionCompletedData struct {
	TransactionID string    `json:"transactionId"`
	PackingListID string    `json:"packingListId"`
	PackageCount  int       `json:"packageCount"`
	CompletedAt   time.Time `json:"completedAt"`
}

// TransactionDeletedData is the payload for TransactionDeleted events
type TransactionDeletedData struct {
	TransactionID string `json:"transactionId"`
	PackingListID string `json:"packingListId"`
}

// FlowUpdatedData is the payload for FlowUpdated events
type FlowUpdatedData struct {
	FlowName  string `json:"flowName"`
	StepCount int    `json:"stepCount"`
}
