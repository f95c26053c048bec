package service

import (
	"context"
	"strings"
	"time"

	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/costing"
	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/internal/units"
	"bakery-backoffice/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateIngredientInput struct {
	Name                  string          `json:"name" validate:"required"`
	UnitsOnHand           float64         `json:"units_on_hand" validate:"gt=0"`
	WeightOrVolumePerUnit *float64        `json:"weight_or_volume_per_unit"`
	BaseUnit              string          `json:"base_unit" validate:"required,unit"`
	CostPrice             decimal.Decimal `json:"cost_price"`
	MinimumLevel          int             `json:"minimum_level" validate:"gte=0"`
	Category              string          `json:"category" validate:"required"`
	ExpiresOn             *time.Time      `json:"expires_on"`
}

// UpdateIngredientInput changes only the fields that are set.
type UpdateIngredientInput struct {
	Name                  *string          `json:"name"`
	UnitsOnHand           *float64         `json:"units_on_hand"`
	WeightOrVolumePerUnit *float64         `json:"weight_or_volume_per_unit"`
	BaseUnit              *string          `json:"base_unit"`
	CostPrice             *decimal.Decimal `json:"cost_price"`
	MinimumLevel          *int             `json:"minimum_level"`
	Category              *string          `json:"category"`
	ExpiresOn             *time.Time       `json:"expires_on"`
}

func (in UpdateIngredientInput) empty() bool {
	return in.Name == nil && in.UnitsOnHand == nil && in.WeightOrVolumePerUnit == nil &&
		in.BaseUnit == nil && in.CostPrice == nil && in.MinimumLevel == nil &&
		in.Category == nil && in.ExpiresOn == nil
}

// IngredientUsage tells whether an ingredient can still be edited freely:
// only when no recipe uses it.
type IngredientUsage struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	CanEdit      bool      `json:"can_edit"`
	Recipes      []string  `json:"recipes"`
}

type IngredientService interface {
	CreateIngredient(ctx context.Context, in CreateIngredientInput) (*model.Ingredient, error)
	UpdateIngredient(ctx context.Context, id uuid.UUID, in UpdateIngredientInput) (*model.Ingredient, error)
	DeleteIngredient(ctx context.Context, id uuid.UUID, force bool) (*DeleteResult, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (*model.Ingredient, error)
	ListIngredients(ctx context.Context, nameFilter string) ([]model.Ingredient, error)
	IngredientUsage(ctx context.Context, id uuid.UUID) (*IngredientUsage, error)
}

type ingredientService struct {
	ingredientRepo repository.IngredientRepository
	recipeRepo     repository.RecipeRepository
	orderRepo      repository.OrderRepository
	db             *gorm.DB
	log            *logger.Logger
}

func NewIngredientService(iRepo repository.IngredientRepository, rRepo repository.RecipeRepository, oRepo repository.OrderRepository, db *gorm.DB, log *logger.Logger) IngredientService {
	return &ingredientService{
		ingredientRepo: iRepo,
		recipeRepo:     rRepo,
		orderRepo:      oRepo,
		db:             db,
		log:            log,
	}
}

func (s *ingredientService) repos(tx *gorm.DB) txRepos {
	return bind(tx, s.ingredientRepo, s.recipeRepo, s.orderRepo)
}

func ensureIngredientNameFree(ingredients repository.IngredientRepository, name string, self uuid.UUID) error {
	existing, err := ingredients.FindByName(name)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return apperr.Conflict("ingredient %q already exists", name)
	}
	return nil
}

// checkStockShape enforces the per-unit weight rule for the ingredient's
// unit family.
func checkStockShape(ing *model.Ingredient) error {
	if ing.IsCount() {
		ing.WeightOrVolumePerUnit = nil
		return nil
	}
	if ing.WeightOrVolumePerUnit == nil || *ing.WeightOrVolumePerUnit <= 0 {
		return apperr.Validation("ingredient measured in %s needs a positive weight or volume per unit", ing.BaseUnit)
	}
	return nil
}

func (s *ingredientService) CreateIngredient(ctx context.Context, in CreateIngredientInput) (*model.Ingredient, error) {
	in.Name = normalizeName(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.CostPrice.IsNegative() {
		return nil, apperr.Validation("cost price must not be negative")
	}
	if in.UnitsOnHand < float64(in.MinimumLevel) {
		return nil, apperr.Validation("units on hand must not be below the minimum level")
	}
	unit, err := units.Parse(in.BaseUnit)
	if err != nil {
		return nil, err
	}

	ing := &model.Ingredient{
		Name:                  in.Name,
		UnitsOnHand:           in.UnitsOnHand,
		WeightOrVolumePerUnit: in.WeightOrVolumePerUnit,
		BaseUnit:              string(unit),
		CostPrice:             in.CostPrice,
		MinimumLevel:          in.MinimumLevel,
		Category:              in.Category,
		ExpiresOn:             in.ExpiresOn,
	}
	if err := checkStockShape(ing); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)
		if err := ensureIngredientNameFree(repos.ingredients, ing.Name, uuid.Nil); err != nil {
			return err
		}
		return repos.ingredients.Create(ing)
	})
	if err != nil {
		return nil, err
	}

	ing.Refresh()
	s.log.Info("ingredient created", "ingredient_id", ing.ID, "name", ing.Name)
	return ing, nil
}

func (s *ingredientService) UpdateIngredient(ctx context.Context, id uuid.UUID, in UpdateIngredientInput) (*model.Ingredient, error) {
	if in.empty() {
		return nil, apperr.Validation("no fields to update")
	}

	var updated *model.Ingredient
	var recosted int
	var kept []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		locked, err := repos.ingredients.LockForUpdate([]uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return apperr.NotFound("ingredient")
		}
		ing := &locked[0]
		before := *ing

		if in.Name != nil {
			name := normalizeName(*in.Name)
			if name == "" {
				return apperr.Validation("ingredient name must not be empty")
			}
			if err := ensureIngredientNameFree(repos.ingredients, name, ing.ID); err != nil {
				return err
			}
			ing.Name = name
		}
		if in.BaseUnit != nil {
			unit, err := units.Parse(*in.BaseUnit)
			if err != nil {
				return err
			}
			if units.FamilyOf(string(unit)) != units.FamilyOf(ing.BaseUnit) {
				users, err := repos.recipes.FindByIngredient(ing.ID)
				if err != nil {
					return err
				}
				if len(users) > 0 {
					return apperr.Conflict("ingredient %q is used by %d recipe(s); its unit family cannot change", ing.Name, len(users))
				}
			}
			ing.BaseUnit = string(unit)
		}
		if in.WeightOrVolumePerUnit != nil {
			w := *in.WeightOrVolumePerUnit
			ing.WeightOrVolumePerUnit = &w
		}
		if in.UnitsOnHand != nil {
			if *in.UnitsOnHand < 0 {
				return apperr.Validation("units on hand must not be negative")
			}
			ing.UnitsOnHand = *in.UnitsOnHand
		}
		if in.CostPrice != nil {
			if in.CostPrice.IsNegative() {
				return apperr.Validation("cost price must not be negative")
			}
			ing.CostPrice = *in.CostPrice
		}
		if in.MinimumLevel != nil {
			if *in.MinimumLevel < 0 {
				return apperr.Validation("minimum level must not be negative")
			}
			ing.MinimumLevel = *in.MinimumLevel
		}
		if in.Category != nil {
			c := strings.TrimSpace(*in.Category)
			if c == "" {
				return apperr.Validation("category must not be empty")
			}
			ing.Category = c
		}
		if in.ExpiresOn != nil {
			ing.ExpiresOn = in.ExpiresOn
		}
		if err := checkStockShape(ing); err != nil {
			return err
		}

		if err := repos.ingredients.Save(ing); err != nil {
			return err
		}
		ing.Refresh()
		updated = ing

		if !pricingChanged(before, *ing) {
			return nil
		}
		recosted, kept, err = recostUsers(repos, ing.ID)
		return err
	})
	if err != nil {
		s.log.Warn("update ingredient rejected", "ingredient_id", id, "kind", apperr.KindOf(err).String(), "error", err)
		return nil, err
	}

	if recosted > 0 {
		s.log.Info("recipes recosted", "ingredient_id", id, "recipes", recosted)
	}
	for _, name := range kept {
		s.log.Warn("recipe keeps previous cost", "ingredient_id", id, "recipe", name, "reason", "ingredient has no stock")
	}
	return updated, nil
}

// pricingChanged reports whether any input of the cost formula moved.
func pricingChanged(before, after model.Ingredient) bool {
	return !before.CostPrice.Equal(after.CostPrice) ||
		before.UnitsOnHand != after.UnitsOnHand ||
		before.WeightPerUnit() != after.WeightPerUnit() ||
		before.BaseUnit != after.BaseUnit
}

// recostUsers recomputes every recipe that uses the ingredient. A recipe
// whose stock is empty keeps its last cost and is returned in kept; any other
// failure aborts so the caller's transaction rolls back.
func recostUsers(repos txRepos, ingredientID uuid.UUID) (n int, kept []string, err error) {
	recipes, err := repos.recipes.FindByIngredient(ingredientID)
	if err != nil {
		return 0, nil, err
	}
	for i := range recipes {
		if err := costing.Recost(&recipes[i]); err != nil {
			if apperr.Is(err, apperr.KindInvalidStockState) {
				kept = append(kept, recipes[i].Name)
				continue
			}
			return 0, nil, err
		}
		if err := repos.recipes.UpdateCost(recipes[i].ID, recipes[i].ProductionCost); err != nil {
			return 0, nil, err
		}
		n++
	}
	return n, kept, nil
}

func (s *ingredientService) DeleteIngredient(ctx context.Context, id uuid.UUID, force bool) (*DeleteResult, error) {
	var result *DeleteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		ing, err := repos.ingredients.FindByID(id)
		if err != nil {
			return err
		}
		recipes, err := repos.recipes.FindByIngredient(id)
		if err != nil {
			return err
		}
		if len(recipes) == 0 {
			result = &DeleteResult{Result: ResultDeleted}
			return repos.ingredients.Delete(id)
		}

		names := make([]string, len(recipes))
		affectedOrders := map[uuid.UUID]bool{}
		var orderList []uuid.UUID
		for i := range recipes {
			names[i] = recipes[i].Name
			orders, err := repos.orders.FindByRecipe(recipes[i].ID)
			if err != nil {
				return err
			}
			for _, oid := range orderIDs(orders) {
				if !affectedOrders[oid] {
					affectedOrders[oid] = true
					orderList = append(orderList, oid)
				}
			}
		}

		if !force {
			msg := "ingredient " + ing.Name + " is used in recipes; deleting it removes it from them"
			if len(orderList) > 0 {
				msg = "ingredient " + ing.Name + " is used in recipes that are in orders; deleting it may remove recipes and orders"
			}
			result = &DeleteResult{
				Result:          ResultConfirmationRequired,
				Message:         msg,
				AffectedRecipes: names,
				AffectedOrders:  orderList,
			}
			return nil
		}

		result = &DeleteResult{Result: ResultDeletedCascading, AffectedRecipes: names, AffectedOrders: orderList}
		for i := range recipes {
			recipe := &recipes[i]
			if err := repos.recipes.DeleteLink(recipe.ID, id); err != nil {
				return err
			}
			kept := recipe.Ingredients[:0]
			for _, l := range recipe.Ingredients {
				if l.IngredientID != id {
					kept = append(kept, l)
				}
			}
			recipe.Ingredients = kept

			if len(kept) == 0 {
				deleted, err := detachRecipe(repos.orders, repos.ingredients, recipe.ID)
				if err != nil {
					return err
				}
				if err := repos.recipes.Delete(recipe.ID); err != nil {
					return err
				}
				result.DeletedRecipes = append(result.DeletedRecipes, recipe.Name)
				result.DeletedOrders = append(result.DeletedOrders, deleted...)
				continue
			}

			if err := costing.Recost(recipe); err != nil {
				// uncosted recipes cannot be ordered until repriced
				s.log.Warn("recipe left without cost", "recipe", recipe.Name, "error", err)
				recipe.ProductionCost = decimal.NullDecimal{}
			}
			if err := repos.recipes.UpdateCost(recipe.ID, recipe.ProductionCost); err != nil {
				return err
			}
		}
		return repos.ingredients.Delete(id)
	})
	if err != nil {
		s.log.Warn("delete ingredient rejected", "ingredient_id", id, "kind", apperr.KindOf(err).String(), "error", err)
		return nil, err
	}

	s.log.Info("ingredient delete", "ingredient_id", id, "result", result.Result,
		"deleted_recipes", len(result.DeletedRecipes), "deleted_orders", len(result.DeletedOrders))
	return result, nil
}

func (s *ingredientService) GetIngredient(ctx context.Context, id uuid.UUID) (*model.Ingredient, error) {
	return s.ingredientRepo.WithTx(s.db.WithContext(ctx)).FindByID(id)
}

func (s *ingredientService) ListIngredients(ctx context.Context, nameFilter string) ([]model.Ingredient, error) {
	return s.ingredientRepo.WithTx(s.db.WithContext(ctx)).FindAll(nameFilter)
}

func (s *ingredientService) IngredientUsage(ctx context.Context, id uuid.UUID) (*IngredientUsage, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.ingredientRepo.WithTx(db).FindByID(id); err != nil {
		return nil, err
	}
	recipes, err := s.recipeRepo.WithTx(db).FindByIngredient(id)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(recipes))
	for i := range recipes {
		names[i] = recipes[i].Name
	}
	return &IngredientUsage{IngredientID: id, CanEdit: len(recipes) == 0, Recipes: names}, nil
}
