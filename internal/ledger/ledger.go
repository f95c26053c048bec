// Package ledger plans and applies the stock movements caused by order
// lines. It only ever writes UnitsOnHand.
package ledger

import (
	"sort"

	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/costing"
	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/units"

	"github.com/google/uuid"
)

// Epsilon absorbs float noise when comparing demand with stock.
const Epsilon = 1e-9

// Store is the transaction-bound view of ingredient stock the ledger needs.
type Store interface {
	// LockForUpdate loads the ingredients and holds their rows until commit.
	LockForUpdate(ids []uuid.UUID) ([]model.Ingredient, error)
	// AdjustUnits adds delta to UnitsOnHand. Missing rows are not an error.
	AdjustUnits(id uuid.UUID, delta float64) error
}

// Delta is the accumulated physical-unit movement for one ingredient.
type Delta struct {
	IngredientID uuid.UUID
	Name         string
	BaseUnit     string
	Units        float64
}

type Shortfall struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Ingredient   string    `json:"ingredient"`
	Unit         string    `json:"unit"`
	Needed       float64   `json:"needed"`
	OnHand       float64   `json:"on_hand"`
	Short        float64   `json:"short"`

	// grams or millilitres for mass and volume ingredients
	BaseUnit   string  `json:"base_unit,omitempty"`
	NeededBase float64 `json:"needed_base,omitempty"`
	OnHandBase float64 `json:"on_hand_base,omitempty"`
}

// Plan accumulates deltas across any number of recipe applications. Whether
// it is consumed or restituted is decided when it is applied.
type Plan struct {
	byID map[uuid.UUID]*Delta
}

func NewPlan() *Plan {
	return &Plan{byID: make(map[uuid.UUID]*Delta)}
}

// PlanConsumption plans the stock qty batches of recipe draw. Links must
// carry their Ingredient.
func PlanConsumption(recipe *model.Recipe, qty int) (*Plan, error) {
	p := NewPlan()
	if err := p.Add(recipe, qty); err != nil {
		return nil, err
	}
	return p, nil
}

// PlanRestitution plans the stock returned when qty batches of recipe are
// released.
func PlanRestitution(recipe *model.Recipe, qty int) (*Plan, error) {
	return PlanConsumption(recipe, qty)
}

// Add folds qty batches of recipe into the plan.
func (p *Plan) Add(recipe *model.Recipe, qty int) error {
	if qty < 0 {
		return apperr.Validation("quantity must not be negative")
	}
	for _, link := range recipe.Ingredients {
		perBatch, err := costing.PhysicalUnits(link, link.Ingredient)
		if err != nil {
			return err
		}
		d, ok := p.byID[link.IngredientID]
		if !ok {
			d = &Delta{
				IngredientID: link.IngredientID,
				Name:         link.Ingredient.Name,
				BaseUnit:     link.Ingredient.BaseUnit,
			}
			p.byID[link.IngredientID] = d
		}
		d.Units += perBatch * float64(qty)
	}
	return nil
}

func (p *Plan) Empty() bool {
	for _, d := range p.byID {
		if d.Units != 0 {
			return false
		}
	}
	return true
}

// Deltas returns the plan ordered by ingredient id, the order rows are
// locked in.
func (p *Plan) Deltas() []Delta {
	out := make([]Delta, 0, len(p.byID))
	for _, d := range p.byID {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IngredientID.String() < out[j].IngredientID.String()
	})
	return out
}

func (p *Plan) IDs() []uuid.UUID {
	deltas := p.Deltas()
	ids := make([]uuid.UUID, len(deltas))
	for i, d := range deltas {
		ids[i] = d.IngredientID
	}
	return ids
}

// CheckAvailability reports every delta that exceeds the stock on hand.
// An ingredient absent from stock counts as zero on hand.
func CheckAvailability(deltas []Delta, stock map[uuid.UUID]model.Ingredient) []Shortfall {
	var out []Shortfall
	for _, d := range deltas {
		if d.Units <= 0 {
			continue
		}
		ing, ok := stock[d.IngredientID]
		onHand := 0.0
		if ok {
			onHand = ing.UnitsOnHand
		}
		if d.Units <= onHand+Epsilon {
			continue
		}
		sf := Shortfall{
			IngredientID: d.IngredientID,
			Ingredient:   d.Name,
			Unit:         d.BaseUnit,
			Needed:       d.Units,
			OnHand:       onHand,
			Short:        d.Units - onHand,
		}
		if ok && !ing.IsCount() {
			if canonical, err := units.Canonical(ing.BaseUnit); err == nil {
				perUnit := units.ToBase(ing.WeightPerUnit(), ing.BaseUnit)
				sf.BaseUnit = string(canonical)
				sf.NeededBase = d.Units * perUnit
				sf.OnHandBase = onHand * perUnit
			}
		}
		out = append(out, sf)
	}
	return out
}

// Consume locks the plan's ingredients, checks availability against the
// locked values and decrements them. Nothing is written when any ingredient
// falls short.
func Consume(store Store, p *Plan) error {
	if p.Empty() {
		return nil
	}
	deltas := p.Deltas()
	locked, err := store.LockForUpdate(p.IDs())
	if err != nil {
		return err
	}
	stock := make(map[uuid.UUID]model.Ingredient, len(locked))
	for _, ing := range locked {
		stock[ing.ID] = ing
	}
	for _, d := range deltas {
		if _, ok := stock[d.IngredientID]; !ok {
			return apperr.NotFound("ingredient " + d.Name)
		}
	}

	if shortfalls := CheckAvailability(deltas, stock); len(shortfalls) > 0 {
		return apperr.New(apperr.KindInsufficientStock, "insufficient stock for %d ingredient(s)", len(shortfalls)).WithDetails(shortfalls)
	}

	for _, d := range deltas {
		if d.Units == 0 {
			continue
		}
		if err := store.AdjustUnits(d.IngredientID, -d.Units); err != nil {
			return err
		}
	}
	return nil
}

// Restitute returns the plan's stock. It never fails on availability.
func Restitute(store Store, p *Plan) error {
	for _, d := range p.Deltas() {
		if d.Units == 0 {
			continue
		}
		if err := store.AdjustUnits(d.IngredientID, d.Units); err != nil {
			return err
		}
	}
	return nil
}

// Shortfalls extracts the shortfall list from an insufficient-stock error.
func Shortfalls(err error) []Shortfall {
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindInsufficientStock {
		return nil
	}
	sf, _ := e.Details.([]Shortfall)
	return sf
}
