package dto

// CreateTransactionRequest opens a new package transaction for a packing list
type CreateTransactionRequest struct {
	TransactionID string `json:"transactionId,omitempty" binding:"omitempty,transaction_id"`
	PackingListID string `json:"packingListId" binding:"required,packing_list_id"`
	FlowName      string `json:"businessProcessFlow" binding:"required"`
}

// HandleStepRequest executes one step against a transaction. The step code
// selects which payload fields apply; unrelated fields are ignored.
type HandleStepRequest struct {
	Step       string   `json:"step" binding:"required,step_code"`
	LineID     string   `json:"lineId,omitempty"`
	PackageNo  string   `json:"packageNo,omitempty"`
	PackageIDs []string `json:"packageIds,omitempty" binding:"omitempty,max=50"`
	LocationID string   `json:"locationId,omitempty" binding:"omitempty,location_id"`
}

// UpsertFlowRequest replaces a flow definition
type UpsertFlowRequest struct {
	Steps []FlowStepRequest `json:"steps" binding:"required,dive"`
}

// FlowStepRequest is one transition definition within a flow
type FlowStepRequest struct {
	Code       string `json:"code" binding:"required,step_code"`
	FromStatus string `json:"fromStatus" binding:"required,position_status"`
	ToStatus   string `json:"toStatus" binding:"required,position_status"`
}

// UpsertPackingListRequest registers or replaces a packing list
type UpsertPackingListRequest struct {
	PackingListID string                   `json:"packingListId" binding:"required,packing_list_id"`
	HBLNo         string                   `json:"hblNo,omitempty"`
	ContainerNo   string                   `json:"containerNo,omitempty"`
	Lines         []PackingListLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// PackingListLineRequest is one cargo line on a packing list
type PackingListLineRequest struct {
	LineID       string  `json:"lineId" binding:"required"`
	CargoName    string  `json:"cargoName" binding:"required"`
	PackageCount int     `json:"packageCount" binding:"required,min=1"`
	Unit         string  `json:"unit,omitempty"`
	Marks        string  `json:"marks,omitempty"`
	GrossWeight  float64 `json:"grossWeight,omitempty"`
	Volume       float64 `json:"volume,omitempty"`
}

// UpsertLocationRequest registers or replaces a storage location
type UpsertLocationRequest struct {
	LocationID      string `json:"locationId" binding:"required,location_id"`
	DisplayCode     string `json:"displayCode" binding:"required"`
	Zone            string `json:"zone,omitempty"`
	Capacity        int    `json:"capacity" binding:"min=0"`
	CurrentQuantity int    `json:"currentQuantity" binding:"min=0"`
}
