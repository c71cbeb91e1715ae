package domain

// PositionStatus represents the lifecycle state of a single cargo package
type PositionStatus string

const (
	PositionUnknown  PositionStatus = "UNKNOWN"
	PositionCheckIn  PositionStatus = "CHECK_IN"
	PositionHandover PositionStatus = "HANDOVER"
	PositionStored   PositionStatus = "STORED"
	PositionCheckout PositionStatus = "CHECKOUT"
)

// IsValid checks if the position status is valid
func (s PositionStatus) IsValid() bool {
	switch s {
	case PositionUnknown, PositionCheckIn, PositionHandover, PositionStored, PositionCheckout:
		return true
	default:
		return false
	}
}

// TransactionStatus represents the status of a package transaction
type TransactionStatus string

const (
	TransactionInProgress TransactionStatus = "IN_PROGRESS"
	TransactionDone       TransactionStatus = "DONE"
)

// IsValid checks if the transaction status is valid
func (s TransactionStatus) IsValid() bool {
	return s == TransactionInProgress || s == TransactionDone
}
