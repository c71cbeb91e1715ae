package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for CFS domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new CFSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *CFSCloudEvent {
	return &CFSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// WithTransaction sets the transaction extensions and returns the event
func (e *CFSCloudEvent) WithTransaction(transactionID, packingListID, flowName string) *CFSCloudEvent {
	e.TransactionID = transactionID
	e.PackingListID = packingListID
	e.FlowName = flowName
	return e
}

// WithCorrelation sets the correlation extension and returns the event
func (e *CFSCloudEvent) WithCorrelation(correlationID string) *CFSCloudEvent {
	e.CorrelationID = correlationID
	return e
}

// CreateTransactionCreatedEvent creates a TransactionCreated event
func (f *EventFactory) CreateTransactionCreatedEvent(
	ctx context.Context,
	transactionID string,
	packingListID string,
	flowName string,
	createdAt time.Time,
) *CFSCloudEvent {
	data := TransactionCreatedData{
		TransactionID: transactionID,
		PackingListID: packingListID,
		FlowName:      flowName,
		CreatedAt:     createdAt,
	}
	event := f.CreateEvent(ctx, TransactionCreated, "transaction/"+transactionID, data)
	return event.WithTransaction(transactionID, packingListID, flowName)
}

// CreatePackageCreatedEvent creates a PackageCreated event
func (f *EventFactory) CreatePackageCreatedEvent(
	ctx context.Context,
	transactionID string,
	packageID string,
	packageNo string,
	lineID string,
	status string,
) *CFSCloudEvent {
	data := PackageCreatedData{
		TransactionID: transactionID,
		PackageID:     packageID,
		PackageNo:     packageNo,
		LineID:        lineID,
		Status:        status,
	}
	event := f.CreateEvent(ctx, PackageCreated, "transaction/"+transactionID+"/package/"+packageID, data)
	event.TransactionID = transactionID
	return event
}

// CreateStepExecutedEvent creates a StepExecuted event
func (f *EventFactory) CreateStepExecutedEvent(
	ctx context.Context,
	transactionID string,
	stepCode string,
	packageIDs []string,
	fromStatus string,
	toStatus string,
	locationID string,
) *CFSCloudEvent {
	data := StepExecutedData{
		TransactionID: transactionID,
		StepCode:      stepCode,
		PackageIDs:    packageIDs,
		FromStatus:    fromStatus,
		ToStatus:      toStatus,
		LocationID:    locationID,
	}
	event := f.CreateEvent(ctx, StepExecuted, "transaction/"+transactionID+"/step/"+stepCode, data)
	event.TransactionID = transactionID
	return event
}

// CreateTransactionCompletedEvent creates a TransactionCompleted event
func (f *EventFactory) CreateTransactionCompletedEvent(
	ctx context.Context,
	transactionID string,
	packingListID string,
	packageCount int,
	completedAt time.Time,
) *CFSCloudEvent {
	data := TransactionCompletedData{
		TransactionID: transactionID,
		PackingListID: packingListID,
		PackageCount:  packageCount,
		CompletedAt:   completedAt,
	}
	event := f.CreateEvent(ctx, TransactionCompleted, "transaction/"+transactionID, data)
	event.TransactionID = transactionID
	event.PackingListID = packingListID
	return event
}

// CreateTransactionDeletedEvent creates a TransactionDeleted event
func (f *EventFactory) CreateTransactionDeletedEvent(
	ctx context.Context,
	transactionID string,
	packingListID string,
) *CFSCloudEvent {
	data := TransactionDeletedData{
		TransactionID: transactionID,
		PackingListID: packingListID,
	}
	event := f.CreateEvent(ctx, TransactionDeleted, "transaction/"+transactionID, data)
	event.TransactionID = transactionID
	event.PackingListID = packingListID
	return event
}
