// Package costing derives recipe production costs from current ingredient
// prices and stock.
package costing

import (
	"math"

	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/units"

	"github.com/shopspring/decimal"
)

// CostPlaces is the precision production costs are stored with.
const CostPlaces = 4

// PhysicalUnits is how many stock units (bags, bottles, pieces) one batch of
// the recipe draws from the linked ingredient.
func PhysicalUnits(link model.RecipeIngredient, ing model.Ingredient) (float64, error) {
	if ing.IsCount() {
		if link.CountQuantity == nil {
			return 0, apperr.New(apperr.KindInvalidIngredientConfig, "ingredient %q is counted in units but the recipe uses a mass or volume", ing.Name)
		}
		return *link.CountQuantity, nil
	}
	if link.MassOrVolumeQuantity == nil {
		return 0, apperr.New(apperr.KindInvalidIngredientConfig, "ingredient %q is measured by mass or volume but the recipe uses a count", ing.Name)
	}
	perUnit := ing.WeightPerUnit()
	if perUnit <= 0 {
		return 0, apperr.New(apperr.KindInvalidIngredientConfig, "ingredient %q has no weight or volume per unit", ing.Name)
	}
	canonical, err := units.Canonical(ing.BaseUnit)
	if err != nil {
		return 0, err
	}
	inStockUnit, err := units.Convert(*link.MassOrVolumeQuantity, string(canonical), ing.BaseUnit)
	if err != nil {
		return 0, err
	}
	return inStockUnit / perUnit, nil
}

// LineCost is the cost of one batch's share of the linked ingredient.
func LineCost(link model.RecipeIngredient, ing model.Ingredient) (float64, error) {
	price := ing.CostPrice.InexactFloat64()
	if price < 0 {
		return 0, apperr.New(apperr.KindInvalidIngredientConfig, "ingredient %q has a negative cost price", ing.Name)
	}

	if ing.IsCount() {
		needed, err := PhysicalUnits(link, ing)
		if err != nil {
			return 0, err
		}
		if ing.UnitsOnHand <= 0 {
			return 0, apperr.New(apperr.KindInvalidStockState, "ingredient %q has no units on hand to price from", ing.Name)
		}
		return needed * (price / ing.UnitsOnHand), nil
	}

	// validates family and per-unit weight
	if _, err := PhysicalUnits(link, ing); err != nil {
		return 0, err
	}
	derived := ing.ComputeDerivedQuantity()
	if derived <= 0 {
		return 0, apperr.New(apperr.KindInvalidStockState, "ingredient %q has no stock to price from", ing.Name)
	}
	return *link.MassOrVolumeQuantity * (price / derived), nil
}

// RecipeCost sums the line costs of links. Each link must carry its
// Ingredient.
func RecipeCost(links []model.RecipeIngredient) (decimal.Decimal, error) {
	total := 0.0
	for _, link := range links {
		c, err := LineCost(link, link.Ingredient)
		if err != nil {
			return decimal.Zero, err
		}
		total += c
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return decimal.Zero, apperr.New(apperr.KindCostComputation, "production cost is not a finite number")
	}
	return decimal.NewFromFloat(total).Round(CostPlaces), nil
}

// Recost recomputes r.ProductionCost from its loaded links. An error leaves
// the previous cost untouched.
func Recost(r *model.Recipe) error {
	cost, err := RecipeCost(r.Ingredients)
	if err != nil {
		return err
	}
	r.ProductionCost = decimal.NullDecimal{Decimal: cost, Valid: true}
	return nil
}
