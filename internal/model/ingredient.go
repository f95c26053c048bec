package model

import (
	"time"

	"bakery-backoffice/internal/units"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ingredient is a stock item. UnitsOnHand counts physical units (bags,
// bottles, pieces); WeightOrVolumePerUnit is expressed in BaseUnit and is nil
// for count ingredients.
type Ingredient struct {
	BaseModel
	Name                  string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	UnitsOnHand           float64         `gorm:"not null;default:0" json:"units_on_hand"`
	WeightOrVolumePerUnit *float64        `json:"weight_or_volume_per_unit"`
	BaseUnit              string          `gorm:"type:varchar(8);not null" json:"base_unit"`
	CostPrice             decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"cost_price"`
	MinimumLevel          int             `gorm:"not null;default:0" json:"minimum_level"`
	Category              string          `gorm:"type:varchar(100)" json:"category"`
	ExpiresOn             *time.Time      `gorm:"type:date" json:"expires_on,omitempty"`

	// DerivedQuantity is never stored, see Refresh
	DerivedQuantity float64 `gorm:"-" json:"derived_quantity"`
}

func (i *Ingredient) IsCount() bool {
	return units.IsCount(i.BaseUnit)
}

// WeightPerUnit returns the per-unit weight or volume, 0 when unset.
func (i *Ingredient) WeightPerUnit() float64 {
	if i.WeightOrVolumePerUnit == nil {
		return 0
	}
	return *i.WeightOrVolumePerUnit
}

// ComputeDerivedQuantity is the stock expressed in grams or millilitres, or
// the unit count for count ingredients.
func (i *Ingredient) ComputeDerivedQuantity() float64 {
	if i.IsCount() {
		return i.UnitsOnHand
	}
	return i.UnitsOnHand * units.ToBase(i.WeightPerUnit(), i.BaseUnit)
}

// Refresh recomputes the derived projection after an in-memory change.
func (i *Ingredient) Refresh() {
	i.DerivedQuantity = i.ComputeDerivedQuantity()
}

func (i *Ingredient) AfterFind(tx *gorm.DB) error {
	i.Refresh()
	return nil
}

func (i *Ingredient) IsLowStock() bool {
	return i.UnitsOnHand < float64(i.MinimumLevel)
}
