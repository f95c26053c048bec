package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Recipe struct {
	BaseModel
	Name           string              `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Yield          string              `gorm:"type:varchar(255);not null" json:"yield"`
	Preparation    *string             `gorm:"type:text" json:"preparation,omitempty"`
	ProductionCost decimal.NullDecimal `gorm:"type:decimal(14,4)" json:"production_cost"`
	Ingredients    []RecipeIngredient  `gorm:"foreignKey:RecipeID" json:"ingredients,omitempty"`
}

// RecipeIngredient links a recipe to an ingredient. Exactly one quantity is
// set: CountQuantity for count ingredients, MassOrVolumeQuantity (grams or
// millilitres) otherwise.
type RecipeIngredient struct {
	RecipeID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"recipe_id"`
	IngredientID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"ingredient_id"`
	CountQuantity        *float64   `json:"count_quantity,omitempty"`
	MassOrVolumeQuantity *float64   `json:"mass_or_volume_quantity,omitempty"`
	Ingredient           Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient"`
}

// Quantity returns whichever quantity field is set.
func (ri *RecipeIngredient) Quantity() float64 {
	if ri.CountQuantity != nil {
		return *ri.CountQuantity
	}
	if ri.MassOrVolumeQuantity != nil {
		return *ri.MassOrVolumeQuantity
	}
	return 0
}

func (r *Recipe) HasCost() bool {
	return r.ProductionCost.Valid
}

func (r *Recipe) Link(ingredientID uuid.UUID) (*RecipeIngredient, bool) {
	for i := range r.Ingredients {
		if r.Ingredients[i].IngredientID == ingredientID {
			return &r.Ingredients[i], true
		}
	}
	return nil, false
}
