package service

import (
	"strings"

	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/ledger"
	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Delete outcomes shared by recipes and ingredients.
const (
	ResultDeleted              = "deleted"
	ResultConfirmationRequired = "confirmation_required"
	ResultDeletedCascading     = "deleted_cascading"
)

// DeleteResult reports what a delete did, or what a forced delete would
// touch when confirmation is required.
type DeleteResult struct {
	Result          string      `json:"result"`
	Message         string      `json:"message,omitempty"`
	AffectedRecipes []string    `json:"affected_recipes,omitempty"`
	AffectedOrders  []uuid.UUID `json:"affected_orders,omitempty"`
	DeletedRecipes  []string    `json:"deleted_recipes,omitempty"`
	DeletedOrders   []uuid.UUID `json:"deleted_orders,omitempty"`
}

// normalizeName trims and lower-cases names, which are unique case-insensitively.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validateInput(in interface{}) error {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return apperr.Validation("%s", validator.Message(errs))
	}
	return nil
}

// lineValue is cost × qty, zero for recipes without a cost.
func lineValue(r *model.Recipe, qty int) decimal.Decimal {
	if !r.HasCost() {
		return decimal.Zero
	}
	return r.ProductionCost.Decimal.Mul(decimal.NewFromInt(int64(qty)))
}

// orderTotal is Σ recipe cost × quantity over the lines, which must carry
// their Recipe.
func orderTotal(lines []model.OrderRecipe) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lineValue(&lines[i].Recipe, lines[i].Quantity))
	}
	return total
}

// lessValue takes v off total without going below zero. Totals carry the
// cost a line had when it was priced, so a recosted recipe may be worth more
// now than what was added for it.
func lessValue(total, v decimal.Decimal) decimal.Decimal {
	out := total.Sub(v)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

func removeLine(lines []model.OrderRecipe, recipeID uuid.UUID) []model.OrderRecipe {
	out := lines[:0]
	for _, l := range lines {
		if l.RecipeID != recipeID {
			out = append(out, l)
		}
	}
	return out
}

// restituteLines returns the stock every line holds.
func restituteLines(store ledger.Store, lines []model.OrderRecipe) error {
	plan := ledger.NewPlan()
	for i := range lines {
		if err := plan.Add(&lines[i].Recipe, lines[i].Quantity); err != nil {
			return err
		}
	}
	return ledger.Restitute(store, plan)
}

// detachRecipe removes the recipe's line from every order. Open orders get
// the line's stock back and their total decremented; completed and canceled
// orders keep both. Orders left without lines are deleted and their ids
// returned.
func detachRecipe(orders repository.OrderRepository, store ledger.Store, recipeID uuid.UUID) ([]uuid.UUID, error) {
	affected, err := orders.FindByRecipe(recipeID)
	if err != nil {
		return nil, err
	}

	var deleted []uuid.UUID
	for i := range affected {
		order := &affected[i]
		line, ok := order.Line(recipeID)
		if !ok {
			continue
		}
		open := !order.Status.Terminal()
		value := lineValue(&line.Recipe, line.Quantity)
		if open {
			if err := restituteLines(store, []model.OrderRecipe{*line}); err != nil {
				return nil, err
			}
		}
		if err := orders.DeleteLine(order.ID, recipeID); err != nil {
			return nil, err
		}
		order.Lines = removeLine(order.Lines, recipeID)

		if len(order.Lines) == 0 {
			if err := orders.Delete(order.ID); err != nil {
				return nil, err
			}
			deleted = append(deleted, order.ID)
			continue
		}
		if !open {
			continue
		}
		order.TotalValue = lessValue(order.TotalValue, value)
		if err := orders.Save(order); err != nil {
			return nil, err
		}
	}
	return deleted, nil
}

func orderIDs(orders []model.Order) []uuid.UUID {
	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	return ids
}

// txRepos bundles repositories bound to one transaction.
type txRepos struct {
	ingredients repository.IngredientRepository
	recipes     repository.RecipeRepository
	orders      repository.OrderRepository
}

func bind(tx *gorm.DB, i repository.IngredientRepository, r repository.RecipeRepository, o repository.OrderRepository) txRepos {
	return txRepos{ingredients: i.WithTx(tx), recipes: r.WithTx(tx), orders: o.WithTx(tx)}
}
