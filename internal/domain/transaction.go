package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PackageTransaction errors
var (
	ErrTransactionNotFound   = errors.New("package transaction not found")
	ErrTransactionDone       = errors.New("package transaction is already done")
	ErrTransactionInProgress = errors.New("a transaction for this packing list is already in progress")
	ErrStepPayloadMismatch   = errors.New("step payload does not match step code")
	ErrStepNotInFlow         = errors.New("step is not part of the transaction's flow")
	ErrPackageNoRequired     = errors.New("package number is required")
	ErrLocationRequired      = errors.New("store step requires a target location")
	ErrNoPackagesSelected    = errors.New("no packages selected")
	ErrPackagesNotEligible   = errors.New("some selected packages are no longer eligible")
	ErrNotCompletable        = errors.New("not all packages reached the terminal status")
	ErrEmptyTransaction      = errors.New("transaction has no packages")
	ErrTransactionNotEmpty   = errors.New("transaction still holds packages")
)

// StepRequest is the typed payload for a step execution. Each step kind
// carries its own shape; the transaction, not the caller, decides how the
// transition applies.
type StepRequest interface {
	StepCode() StepCode
}

// CreateStepRequest creates a single cargo package from a packing-list line.
// A received quantity of N is issued as N sequential requests by the console.
type CreateStepRequest struct {
	LineID    string
	PackageNo string
}

// StepCode returns the step code this payload belongs to
func (CreateStepRequest) StepCode() StepCode { return StepCreate }

// InspectStepRequest advances the selected packages through the inspect step
type InspectStepRequest struct {
	PackageIDs []string
}

// StepCode returns the step code this payload belongs to
func (InspectStepRequest) StepCode() StepCode { return StepInspect }

// StoreStepRequest assigns the selected packages to a storage location
type StoreStepRequest struct {
	PackageIDs []string
	LocationID string
}

// StepCode returns the step code this payload belongs to
func (StoreStepRequest) StepCode() StepCode { return StepStore }

// HandoverStepRequest advances the selected packages through the handover step
type HandoverStepRequest struct {
	PackageIDs []string
}

// StepCode returns the step code this payload belongs to
func (HandoverStepRequest) StepCode() StepCode { return StepHandover }

// PackageRef is a cargo package's identity plus its current position status.
// PositionStatus is advanced exclusively by step execution.
type PackageRef struct {
	ID         string         `bson:"id" json:"id"`
	PackageNo  string         `bson:"packageNo" json:"packageNo"`
	LineID     string         `bson:"lineId,omitempty" json:"lineId,omitempty"`
	LocationID string         `bson:"locationId,omitempty" json:"locationId,omitempty"`
	Status     PositionStatus `bson:"positionStatus" json:"positionStatus"`
	CreatedAt  time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// StepCount is the number of packages currently at a step's target status
type StepCount struct {
	Code  StepCode `json:"code"`
	Count int      `json:"count"`
}

// PackageTransaction groups cargo packages moving together through a
// business process flow. It is the aggregate root: packages enter via the
// create step and advance one step invocation at a time.
type PackageTransaction struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	PackingListID string             `bson:"packingListId" json:"packingListId"`
	FlowName      string             `bson:"businessProcessFlow" json:"businessProcessFlow"`
	Status        TransactionStatus  `bson:"status" json:"status"`
	Packages      []PackageRef       `bson:"packages" json:"packages"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
	CompletedAt   *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	DomainEvents  []DomainEvent      `bson:"-" json:"-"`
}

// NewPackageTransaction creates a new in-progress transaction for a packing list
func NewPackageTransaction(transactionID, packingListID, flowName string) *PackageTransaction {
	now := time.Now().UTC()
	tx := &PackageTransaction{
		ID:            primitive.NewObjectID(),
		TransactionID: transactionID,
		PackingListID: packingListID,
		FlowName:      flowName,
		Status:        TransactionInProgress,
		Packages:      make([]PackageRef, 0),
		CreatedAt:     now,
		UpdatedAt:     now,
		DomainEvents:  make([]DomainEvent, 0),
	}

	tx.addDomainEvent(&TransactionCreatedEvent{
		TransactionID: transactionID,
		PackingListID: packingListID,
		FlowName:      flowName,
		CreatedAt:     now,
	})

	return tx
}

// ApplyStep is the single mutation entry point for every step kind. The step
// definition supplies the transition; the typed request supplies the payload.
// Bulk steps are all-or-nothing: if any referenced package does not currently
// hold the step's fromStatus, nothing is mutated.
func (t *PackageTransaction) ApplyStep(step Step, req StepRequest) error {
	if t.Status == TransactionDone {
		return ErrTransactionDone
	}
	if req.StepCode() != step.Code {
		return fmt.Errorf("%w: step %s, payload %s", ErrStepPayloadMismatch, step.Code, req.StepCode())
	}

	now := time.Now().UTC()

	switch r := req.(type) {
	case CreateStepRequest:
		if r.PackageNo == "" {
			return ErrPackageNoRequired
		}
		pkg := PackageRef{
			ID:        primitive.NewObjectID().Hex(),
			PackageNo: r.PackageNo,
			LineID:    r.LineID,
			Status:    step.ToStatus,
			CreatedAt: now,
			UpdatedAt: now,
		}
		t.Packages = append(t.Packages, pkg)
		t.addDomainEvent(&PackageCreatedEvent{
			TransactionID: t.TransactionID,
			PackageID:     pkg.ID,
			PackageNo:     pkg.PackageNo,
			LineID:        pkg.LineID,
			Status:        pkg.Status,
			CreatedAt:     now,
		})

	case InspectStepRequest:
		if err := t.advancePackages(r.PackageIDs, step, "", now); err != nil {
			return err
		}

	case HandoverStepRequest:
		if err := t.advancePackages(r.PackageIDs, step, "", now); err != nil {
			return err
		}

	case StoreStepRequest:
		if r.LocationID == "" {
			return ErrLocationRequired
		}
		if err := t.advancePackages(r.PackageIDs, step, r.LocationID, now); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: unsupported payload %T", ErrStepPayloadMismatch, req)
	}

	t.UpdatedAt = now
	t.addDomainEvent(&StepExecutedEvent{
		TransactionID: t.TransactionID,
		FlowName:      t.FlowName,
		StepCode:      step.Code,
		FromStatus:    step.FromStatus,
		ToStatus:      step.ToStatus,
		PackageCount:  len(t.Packages),
		ExecutedAt:    now,
	})

	return nil
}

// advancePackages moves the referenced packages from the step's source status
// to its target status. Validation runs over the full selection before any
// mutation so a stale selection leaves the transaction untouched.
func (t *PackageTransaction) advancePackages(packageIDs []string, step Step, locationID string, now time.Time) error {
	if len(packageIDs) == 0 {
		return ErrNoPackagesSelected
	}

	byID := make(map[string]int, len(t.Packages))
	for i, pkg := range t.Packages {
		byID[pkg.ID] = i
	}

	var ineligible []string
	for _, id := range packageIDs {
		idx, ok := byID[id]
		if !ok || t.Packages[idx].Status != step.FromStatus {
			ineligible = append(ineligible, id)
		}
	}
	if len(ineligible) > 0 {
		return fmt.Errorf("%w: %v", ErrPackagesNotEligible, ineligible)
	}

	for _, id := range packageIDs {
		idx := byID[id]
		t.Packages[idx].Status = step.ToStatus
		t.Packages[idx].UpdatedAt = now
		if locationID != "" {
			t.Packages[idx].LocationID = locationID
		}
	}

	return nil
}

// CountAtStatus returns the number of packages currently at the given status
func (t *PackageTransaction) CountAtStatus(status PositionStatus) int {
	count := 0
	for _, pkg := range t.Packages {
		if pkg.Status == status {
			count++
		}
	}
	return count
}

// StepCounts derives the per-step package totals from the current package
// statuses and the flow's declared target statuses. Counts are computed, not
// stored.
func (t *PackageTransaction) StepCounts(flow *Flow) []StepCount {
	counts := make([]StepCount, len(flow.Steps))
	for i, step := range flow.Steps {
		counts[i] = StepCount{Code: step.Code, Count: t.CountAtStatus(step.ToStatus)}
	}
	return counts
}

// PackagesAtStatus returns the packages currently at the given status
func (t *PackageTransaction) PackagesAtStatus(status PositionStatus) []PackageRef {
	var out []PackageRef
	for _, pkg := range t.Packages {
		if pkg.Status == status {
			out = append(out, pkg)
		}
	}
	return out
}

// CanComplete reports whether every package reached the terminal status and
// at least one package exists
func (t *PackageTransaction) CanComplete(terminal PositionStatus) bool {
	if t.Status == TransactionDone || len(t.Packages) == 0 {
		return false
	}
	for _, pkg := range t.Packages {
		if pkg.Status != terminal {
			return false
		}
	}
	return true
}

// Complete marks the transaction as done. The server re-checks the terminal
// condition independently of the caller.
func (t *PackageTransaction) Complete(terminal PositionStatus) error {
	if t.Status == TransactionDone {
		return ErrTransactionDone
	}
	if len(t.Packages) == 0 {
		return ErrEmptyTransaction
	}
	if !t.CanComplete(terminal) {
		return ErrNotCompletable
	}

	now := time.Now().UTC()
	t.Status = TransactionDone
	t.CompletedAt = &now
	t.UpdatedAt = now

	t.addDomainEvent(&TransactionCompletedEvent{
		TransactionID: t.TransactionID,
		PackingListID: t.PackingListID,
		FlowName:      t.FlowName,
		PackageCount:  len(t.Packages),
		CompletedAt:   now,
	})

	return nil
}

// CanDelete reports whether the transaction may be deleted. Deletion is only
// allowed while zero packages have been added and the transaction is not done.
func (t *PackageTransaction) CanDelete() bool {
	return t.Status != TransactionDone && len(t.Packages) == 0
}

// MarkDeleted validates deletability and records the deletion event
func (t *PackageTransaction) MarkDeleted() error {
	if t.Status == TransactionDone {
		return ErrTransactionDone
	}
	if len(t.Packages) > 0 {
		return ErrTransactionNotEmpty
	}

	t.addDomainEvent(&TransactionDeletedEvent{
		TransactionID: t.TransactionID,
		PackingListID: t.PackingListID,
		DeletedAt:     time.Now().UTC(),
	})

	return nil
}

// addDomainEvent adds a domain event
func (t *PackageTransaction) addDomainEvent(event DomainEvent) {
	t.DomainEvents = append(t.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (t *PackageTransaction) GetDomainEvents() []DomainEvent {
	return t.DomainEvents
}

// ClearDomainEvents clears all domain events
func (t *PackageTransaction) ClearDomainEvents() {
	t.DomainEvents = make([]DomainEvent, 0)
}
