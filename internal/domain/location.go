package domain

import "errors"

// Location errors
var (
	ErrLocationNotFound = errors.New("storage location not found")
	ErrLocationFull     = errors.New("storage location capacity exceeded")
)

// StorageLocation is a warehouse storage slot the store step assigns
// packages to. DisplayCode is what operators see on labels and screens.
type StorageLocation struct {
	LocationID      string `bson:"locationId" json:"locationId"`
	DisplayCode     string `bson:"displayCode" json:"displayCode"`
	Zone            string `bson:"zone,omitempty" json:"zone,omitempty"`
	Capacity        int    `bson:"capacity" json:"capacity"`
	CurrentQuantity int    `bson:"currentQuantity" json:"currentQuantity"`
}

// AvailableCapacity returns the remaining capacity
func (l *StorageLocation) AvailableCapacity() int {
	return l.Capacity - l.CurrentQuantity
}

// CanAccept checks if the location can take n more packages. A zero capacity
// means unbounded.
func (l *StorageLocation) CanAccept(n int) bool {
	if l.Capacity == 0 {
		return true
	}
	return l.AvailableCapacity() >= n
}
