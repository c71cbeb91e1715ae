package domain

import (
	"errors"
	"time"
)

// Packing list errors
var (
	ErrPackingListNotFound = errors.New("packing list not found")
	ErrLineNotFound        = errors.New("packing list line not found")
)

// PackingListLine is one cargo line on a packing list. The create step
// enumerates lines and receives packages against them.
type PackingListLine struct {
	LineID       string `bson:"lineId" json:"lineId"`
	CargoName    string `bson:"cargoName" json:"cargoName"`
	PackageCount int    `bson:"packageCount" json:"packageCount"`
	Unit         string `bson:"unit,omitempty" json:"unit,omitempty"`
	Marks        string `bson:"marks,omitempty" json:"marks,omitempty"`
	GrossWeight  float64 `bson:"grossWeight,omitempty" json:"grossWeight,omitempty"`
	Volume       float64 `bson:"volume,omitempty" json:"volume,omitempty"`
}

// PackingList describes the expected cargo of one house bill of lading
type PackingList struct {
	PackingListID string            `bson:"packingListId" json:"packingListId"`
	HBLNo         string            `bson:"hblNo,omitempty" json:"hblNo,omitempty"`
	ContainerNo   string            `bson:"containerNo,omitempty" json:"containerNo,omitempty"`
	Lines         []PackingListLine `bson:"lines" json:"lines"`
	CreatedAt     time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// LineByID returns the line with the given ID
func (p *PackingList) LineByID(lineID string) (PackingListLine, bool) {
	for _, line := range p.Lines {
		if line.LineID == lineID {
			return line, true
		}
	}
	return PackingListLine{}, false
}

// TotalPackageCount returns the declared package total across all lines
func (p *PackingList) TotalPackageCount() int {
	total := 0
	for _, line := range p.Lines {
		total += line.PackageCount
	}
	return total
}
