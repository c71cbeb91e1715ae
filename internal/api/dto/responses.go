package dto

import "time"

// TransactionResponse represents a package transaction with its derived
// per-step totals and the action gates the console renders from
type TransactionResponse struct {
	TransactionID string            `json:"transactionId"`
	PackingListID string            `json:"packingListId"`
	FlowName      string            `json:"businessProcessFlow"`
	Status        string            `json:"status"`
	Packages      []PackageResponse `json:"packages"`
	StepCounts    []StepCountEntry  `json:"stepCounts"`
	Completable   bool              `json:"completable"`
	Deletable     bool              `json:"deletable"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

// PackageResponse represents one cargo package inside a transaction
type PackageResponse struct {
	ID         string    `json:"id"`
	PackageNo  string    `json:"packageNo"`
	LineID     string    `json:"lineId,omitempty"`
	LocationID string    `json:"locationId,omitempty"`
	Status     string    `json:"positionStatus"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StepCountEntry is the package total currently at one step's target status
type StepCountEntry struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// TransactionSummary represents a transaction for list views
type TransactionSummary struct {
	TransactionID string     `json:"transactionId"`
	PackingListID string     `json:"packingListId"`
	FlowName      string     `json:"businessProcessFlow"`
	Status        string     `json:"status"`
	PackageCount  int        `json:"packageCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// FlowResponse represents a business process flow definition
type FlowResponse struct {
	Name      string             `json:"name"`
	Steps     []FlowStepResponse `json:"steps"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// FlowStepResponse represents one transition definition in a flow
type FlowStepResponse struct {
	Code       string `json:"code"`
	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`
	Builtin    bool   `json:"builtin"`
}

// PackingListResponse represents a packing list with its cargo lines
type PackingListResponse struct {
	PackingListID string                    `json:"packingListId"`
	HBLNo         string                    `json:"hblNo,omitempty"`
	ContainerNo   string                    `json:"containerNo,omitempty"`
	Lines         []PackingListLineResponse `json:"lines"`
	TotalPackages int                       `json:"totalPackages"`
	CreatedAt     time.Time                 `json:"createdAt"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
}

// PackingListLineResponse represents one cargo line
type PackingListLineResponse struct {
	LineID       string  `json:"lineId"`
	CargoName    string  `json:"cargoName"`
	PackageCount int     `json:"packageCount"`
	Unit         string  `json:"unit,omitempty"`
	Marks        string  `json:"marks,omitempty"`
	GrossWeight  float64 `json:"grossWeight,omitempty"`
	Volume       float64 `json:"volume,omitempty"`
}

// LocationResponse represents a storage location
type LocationResponse struct {
	LocationID      string `json:"locationId"`
	DisplayCode     string `json:"displayCode"`
	Zone            string `json:"zone,omitempty"`
	Capacity        int    `json:"capacity"`
	CurrentQuantity int    `json:"currentQuantity"`
	Available       int    `json:"available"`
}
