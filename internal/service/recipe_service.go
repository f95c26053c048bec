package service

import (
	"context"
	"strings"

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

type RecipeIngredientInput struct {
	IngredientID uuid.UUID `json:"ingredient_id" validate:"uuid_required"`
	Quantity     float64   `json:"quantity" validate:"gt=0"`
	Unit         string    `json:"unit" validate:"required"`
}

type CreateRecipeInput struct {
	Name        string                  `json:"name" validate:"required"`
	Yield       string                  `json:"yield" validate:"required"`
	Preparation *string                 `json:"preparation"`
	Ingredients []RecipeIngredientInput `json:"ingredients" validate:"required,min=1,dive"`
}

// UpdateRecipeInput changes only the fields that are set. Ingredients, when
// set, replaces the whole ingredient list.
type UpdateRecipeInput struct {
	Name        *string                  `json:"name"`
	Yield       *string                  `json:"yield"`
	Preparation *string                  `json:"preparation"`
	Ingredients *[]RecipeIngredientInput `json:"ingredients" validate:"omitempty,min=1,dive"`
}

type RecipeUsage struct {
	RecipeID uuid.UUID   `json:"recipe_id"`
	InUse    bool        `json:"in_use"`
	OrderIDs []uuid.UUID `json:"order_ids"`
}

type RecostEntry struct {
	Recipe   string              `json:"recipe"`
	Previous decimal.NullDecimal `json:"previous"`
	Current  decimal.NullDecimal `json:"current"`
	Error    string              `json:"error,omitempty"`
}

type RecostReport struct {
	Recosted int           `json:"recosted"`
	Failed   int           `json:"failed"`
	Entries  []RecostEntry `json:"entries"`
}

type RecipeService interface {
	CreateRecipe(ctx context.Context, in CreateRecipeInput) (*model.Recipe, error)
	UpdateRecipe(ctx context.Context, id uuid.UUID, in UpdateRecipeInput) (*model.Recipe, error)
	AddIngredient(ctx context.Context, recipeID uuid.UUID, in RecipeIngredientInput) (*model.Recipe, error)
	UpdateIngredient(ctx context.Context, recipeID uuid.UUID, in RecipeIngredientInput) (*model.Recipe, error)
	RemoveIngredient(ctx context.Context, recipeID, ingredientID uuid.UUID) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, id uuid.UUID, force bool) (*DeleteResult, error)
	RecipeUsage(ctx context.Context, id uuid.UUID) (*RecipeUsage, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error)
	ListRecipes(ctx context.Context, nameFilter string) ([]model.Recipe, error)
	RecostAll(ctx context.Context, dryRun bool) (*RecostReport, error)
}

type recipeService struct {
	ingredientRepo repository.IngredientRepository
	recipeRepo     repository.RecipeRepository
	orderRepo      repository.OrderRepository
	db             *gorm.DB
	log            *logger.Logger
}

func NewRecipeService(iRepo repository.IngredientRepository, rRepo repository.RecipeRepository, oRepo repository.OrderRepository, db *gorm.DB, log *logger.Logger) RecipeService {
	return &recipeService{
		ingredientRepo: iRepo,
		recipeRepo:     rRepo,
		orderRepo:      oRepo,
		db:             db,
		log:            log,
	}
}

func (s *recipeService) repos(tx *gorm.DB) txRepos {
	return bind(tx, s.ingredientRepo, s.recipeRepo, s.orderRepo)
}

// buildLink turns a quantity in any unit of the ingredient's family into
// the stored form: a count, or grams/millilitres.
func buildLink(ing *model.Ingredient, in RecipeIngredientInput) (model.RecipeIngredient, error) {
	unit, err := units.Parse(in.Unit)
	if err != nil {
		return model.RecipeIngredient{}, err
	}
	if !units.SameFamily(string(unit), ing.BaseUnit) {
		return model.RecipeIngredient{}, apperr.New(apperr.KindIncompatibleUnit,
			"unit %s does not match ingredient %q measured in %s", unit, ing.Name, ing.BaseUnit)
	}

	link := model.RecipeIngredient{IngredientID: ing.ID, Ingredient: *ing}
	if ing.IsCount() {
		q := in.Quantity
		link.CountQuantity = &q
		return link, nil
	}
	canonical, err := units.Canonical(ing.BaseUnit)
	if err != nil {
		return model.RecipeIngredient{}, err
	}
	q, err := units.Convert(in.Quantity, string(unit), string(canonical))
	if err != nil {
		return model.RecipeIngredient{}, err
	}
	link.MassOrVolumeQuantity = &q
	return link, nil
}

func buildLinks(ingredients repository.IngredientRepository, inputs []RecipeIngredientInput) ([]model.RecipeIngredient, error) {
	seen := make(map[uuid.UUID]bool, len(inputs))
	links := make([]model.RecipeIngredient, 0, len(inputs))
	for _, in := range inputs {
		if seen[in.IngredientID] {
			return nil, apperr.Conflict("ingredient %s is listed more than once", in.IngredientID)
		}
		seen[in.IngredientID] = true

		ing, err := ingredients.FindByID(in.IngredientID)
		if err != nil {
			return nil, err
		}
		link, err := buildLink(ing, in)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func ensureRecipeNameFree(recipes repository.RecipeRepository, name string, self uuid.UUID) error {
	existing, err := recipes.FindByName(name)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return apperr.Conflict("recipe %q already exists", name)
	}
	return nil
}

func (s *recipeService) CreateRecipe(ctx context.Context, in CreateRecipeInput) (*model.Recipe, error) {
	in.Name = normalizeName(in.Name)
	in.Yield = strings.TrimSpace(in.Yield)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var recipeID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		if err := ensureRecipeNameFree(repos.recipes, in.Name, uuid.Nil); err != nil {
			return err
		}
		links, err := buildLinks(repos.ingredients, in.Ingredients)
		if err != nil {
			return err
		}

		recipe := &model.Recipe{
			Name:        in.Name,
			Yield:       in.Yield,
			Preparation: trimmedOrNil(in.Preparation),
			Ingredients: links,
		}
		if err := costing.Recost(recipe); err != nil {
			return err
		}
		if err := repos.recipes.Create(recipe); err != nil {
			return err
		}
		recipeID = recipe.ID
		return repos.recipes.ReplaceLinks(recipe.ID, links)
	})
	if err != nil {
		s.log.Warn("create recipe rejected", "name", in.Name, "kind", apperr.KindOf(err).String(), "error", err)
		return nil, err
	}

	s.log.Info("recipe created", "recipe_id", recipeID, "name", in.Name)
	return s.GetRecipe(ctx, recipeID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, id uuid.UUID, in UpdateRecipeInput) (*model.Recipe, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		recipe, err := repos.recipes.FindByID(id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := normalizeName(*in.Name)
			if name == "" {
				return apperr.Validation("recipe name must not be empty")
			}
			if err := ensureRecipeNameFree(repos.recipes, name, recipe.ID); err != nil {
				return err
			}
			recipe.Name = name
		}
		if in.Yield != nil {
			y := strings.TrimSpace(*in.Yield)
			if y == "" {
				return apperr.Validation("recipe yield must not be empty")
			}
			recipe.Yield = y
		}
		if in.Preparation != nil {
			recipe.Preparation = trimmedOrNil(in.Preparation)
		}
		if in.Ingredients != nil {
			if len(*in.Ingredients) == 0 {
				return apperr.Validation("recipe %q needs at least one ingredient", recipe.Name)
			}
			links, err := buildLinks(repos.ingredients, *in.Ingredients)
			if err != nil {
				return err
			}
			if err := repos.recipes.ReplaceLinks(recipe.ID, links); err != nil {
				return err
			}
			recipe.Ingredients = links
		}

		if err := costing.Recost(recipe); err != nil {
			return err
		}
		return repos.recipes.Save(recipe)
	})
	if err != nil {
		s.log.Warn("update recipe rejected", "recipe_id", id, "kind", apperr.KindOf(err).String(), "error", err)
		return nil, err
	}

	return s.GetRecipe(ctx, id)
}

func (s *recipeService) AddIngredient(ctx context.Context, recipeID uuid.UUID, in RecipeIngredientInput) (*model.Recipe, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.editLinks(ctx, recipeID, func(repos txRepos, recipe *model.Recipe) error {
		if _, ok := recipe.Link(in.IngredientID); ok {
			return apperr.Conflict("ingredient is already linked to recipe %q", recipe.Name)
		}
		ing, err := repos.ingredients.FindByID(in.IngredientID)
		if err != nil {
			return err
		}
		link, err := buildLink(ing, in)
		if err != nil {
			return err
		}
		link.RecipeID = recipe.ID
		if err := repos.recipes.CreateLink(&link); err != nil {
			return err
		}
		recipe.Ingredients = append(recipe.Ingredients, link)
		return nil
	})
}

func (s *recipeService) UpdateIngredient(ctx context.Context, recipeID uuid.UUID, in RecipeIngredientInput) (*model.Recipe, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.editLinks(ctx, recipeID, func(repos txRepos, recipe *model.Recipe) error {
		existing, ok := recipe.Link(in.IngredientID)
		if !ok {
			return apperr.NotFound("recipe ingredient")
		}
		link, err := buildLink(&existing.Ingredient, in)
		if err != nil {
			return err
		}
		link.RecipeID = recipe.ID
		if err := repos.recipes.UpdateLink(&link); err != nil {
			return err
		}
		*existing = link
		return nil
	})
}

func (s *recipeService) RemoveIngredient(ctx context.Context, recipeID, ingredientID uuid.UUID) (*model.Recipe, error) {
	return s.editLinks(ctx, recipeID, func(repos txRepos, recipe *model.Recipe) error {
		if _, ok := recipe.Link(ingredientID); !ok {
			return apperr.NotFound("recipe ingredient")
		}
		if len(recipe.Ingredients) == 1 {
			return apperr.Validation("recipe %q needs at least one ingredient", recipe.Name)
		}
		if err := repos.recipes.DeleteLink(recipe.ID, ingredientID); err != nil {
			return err
		}
		kept := recipe.Ingredients[:0]
		for _, l := range recipe.Ingredients {
			if l.IngredientID != ingredientID {
				kept = append(kept, l)
			}
		}
		recipe.Ingredients = kept
		return nil
	})
}

// editLinks runs a link edit and recosts the recipe in one transaction.
func (s *recipeService) editLinks(ctx context.Context, recipeID uuid.UUID, edit func(txRepos, *model.Recipe) error) (*model.Recipe, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		recipe, err := repos.recipes.FindByID(recipeID)
		if err != nil {
			return err
		}
		if err := edit(repos, recipe); err != nil {
			return err
		}
		if err := costing.Recost(recipe); err != nil {
			return err
		}
		return repos.recipes.UpdateCost(recipe.ID, recipe.ProductionCost)
	})
	if err != nil {
		s.log.Warn("recipe ingredient edit rejected", "recipe_id", recipeID, "kind", apperr.KindOf(err).String(), "error", err)
		return nil, err
	}
	return s.GetRecipe(ctx, recipeID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id uuid.UUID, force bool) (*DeleteResult, error) {
	var result *DeleteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		recipe, err := repos.recipes.FindByID(id)
		if err != nil {
			return err
		}
		orders, err := repos.orders.FindByRecipe(id)
		if err != nil {
			return err
		}

		if len(orders) == 0 {
			result = &DeleteResult{Result: ResultDeleted}
			return repos.recipes.Delete(id)
		}
		if !force {
			result = &DeleteResult{
				Result:         ResultConfirmationRequired,
				Message:        "recipe " + recipe.Name + " is used in orders; deleting it removes it from them",
				AffectedOrders: orderIDs(orders),
			}
			return nil
		}

		deleted, err := detachRecipe(repos.orders, repos.ingredients, id)
		if err != nil {
			return err
		}
		result = &DeleteResult{
			Result:         ResultDeletedCascading,
			AffectedOrders: orderIDs(orders),
			DeletedOrders:  deleted,
		}
		return repos.recipes.Delete(id)
	})
	if err != nil {
		s.log.Warn("delete recipe rejected", "recipe_id", id, "kind", apperr.KindOf(err).String(), "error", err)
		return nil, err
	}

	s.log.Info("recipe delete", "recipe_id", id, "result", result.Result, "deleted_orders", len(result.DeletedOrders))
	return result, nil
}

func (s *recipeService) RecipeUsage(ctx context.Context, id uuid.UUID) (*RecipeUsage, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.recipeRepo.WithTx(db).FindByID(id); err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.WithTx(db).FindByRecipe(id)
	if err != nil {
		return nil, err
	}
	return &RecipeUsage{RecipeID: id, InUse: len(orders) > 0, OrderIDs: orderIDs(orders)}, nil
}

func (s *recipeService) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	return s.recipeRepo.WithTx(s.db.WithContext(ctx)).FindByID(id)
}

func (s *recipeService) ListRecipes(ctx context.Context, nameFilter string) ([]model.Recipe, error) {
	return s.recipeRepo.WithTx(s.db.WithContext(ctx)).FindAll(nameFilter)
}

// RecostAll recomputes every recipe's production cost from current stock.
// A recipe that cannot be priced keeps its previous cost and is reported.
func (s *recipeService) RecostAll(ctx context.Context, dryRun bool) (*RecostReport, error) {
	recipes, err := s.ListRecipes(ctx, "")
	if err != nil {
		return nil, err
	}

	report := &RecostReport{}
	for i := range recipes {
		recipe := &recipes[i]
		entry := RecostEntry{Recipe: recipe.Name, Previous: recipe.ProductionCost}

		if err := costing.Recost(recipe); err != nil {
			entry.Error = err.Error()
			report.Failed++
			report.Entries = append(report.Entries, entry)
			s.log.Warn("recost failed", "recipe", recipe.Name, "error", err)
			continue
		}
		entry.Current = recipe.ProductionCost

		if !dryRun {
			if err := s.recipeRepo.WithTx(s.db.WithContext(ctx)).UpdateCost(recipe.ID, recipe.ProductionCost); err != nil {
				return nil, err
			}
		}
		report.Recosted++
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
