package client

import "time"

// Transaction mirrors the API's transaction representation. Completable and
// Deletable are server-derived; the client never recomputes them.
type Transaction struct {
	TransactionID string      `json:"transactionId"`
	PackingListID string      `json:"packingListId"`
	FlowName      string      `json:"businessProcessFlow"`
	Status        string      `json:"status"`
	Packages      []Package   `json:"packages"`
	StepCounts    []StepCount `json:"stepCounts"`
	Completable   bool        `json:"completable"`
	Deletable     bool        `json:"deletable"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty"`
}

// Transaction status values
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

// Package is one cargo package inside a transaction
type Package struct {
	ID         string    `json:"id"`
	PackageNo  string    `json:"packageNo"`
	LineID     string    `json:"lineId,omitempty"`
	LocationID string    `json:"locationId,omitempty"`
	Status     string    `json:"positionStatus"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StepCount is the package total currently at one step's target status
type StepCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// Flow is a named, ordered step list
type Flow struct {
	Name  string     `json:"name"`
	Steps []FlowStep `json:"steps"`
}

// FlowStep is one transition definition in a flow
type FlowStep struct {
	Code       string `json:"code"`
	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`
	Builtin    bool   `json:"builtin"`
}

// PackingList describes the expected cargo of one house bill of lading
type PackingList struct {
	PackingListID string            `json:"packingListId"`
	HBLNo         string            `json:"hblNo,omitempty"`
	ContainerNo   string            `json:"containerNo,omitempty"`
	Lines         []PackingListLine `json:"lines"`
	TotalPackages int               `json:"totalPackages"`
}

// PackingListLine is one cargo line on a packing list
type PackingListLine struct {
	LineID       string `json:"lineId"`
	CargoName    string `json:"cargoName"`
	PackageCount int    `json:"packageCount"`
	Unit         string `json:"unit,omitempty"`
}

// Location is a storage location lookup result
type Location struct {
	LocationID      string `json:"locationId"`
	DisplayCode     string `json:"displayCode"`
	Zone            string `json:"zone,omitempty"`
	Capacity        int    `json:"capacity"`
	CurrentQuantity int    `json:"currentQuantity"`
	Available       int    `json:"available"`
}

// StepRequest is the typed payload for one step execution. Each step kind
// carries its own shape.
type StepRequest interface {
	stepBody() stepBody
}

// stepBody is the wire shape of a handleStep call
type stepBody struct {
	Step       string   `json:"step"`
	LineID     string   `json:"lineId,omitempty"`
	PackageNo  string   `json:"packageNo,omitempty"`
	PackageIDs []string `json:"packageIds,omitempty"`
	LocationID string   `json:"locationId,omitempty"`
}

// CreateStep receives one package against a packing-list line. PackageNo is
// optional; the server assigns one when empty.
type CreateStep struct {
	LineID    string
	PackageNo string
}

func (r CreateStep) stepBody() stepBody {
	return stepBody{Step: "create", LineID: r.LineID, PackageNo: r.PackageNo}
}

// InspectStep advances the referenced packages through the inspect step
type InspectStep struct {
	PackageIDs []string
}

func (r InspectStep) stepBody() stepBody {
	return stepBody{Step: "inspect", PackageIDs: r.PackageIDs}
}

// StoreStep assigns the referenced packages to a storage location
type StoreStep struct {
	PackageIDs []string
	LocationID string
}

func (r StoreStep) stepBody() stepBody {
	return stepBody{Step: "store", PackageIDs: r.PackageIDs, LocationID: r.LocationID}
}

// HandoverStep advances the referenced packages through the handover step
type HandoverStep struct {
	PackageIDs []string
}

func (r HandoverStep) stepBody() stepBody {
	return stepBody{Step: "handover", PackageIDs: r.PackageIDs}
}
